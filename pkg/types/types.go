package types

// FileInput is one candidate file handed to the ingestion pipeline: the raw
// content plus the metadata declared by whatever acquired the file (file
// picker, drag-and-drop, download). The pipeline never mutates Data.
type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// ProgressEvent reports decode completion during a batch submission. Total is
// fixed when the submission starts; Completed counts finished decodes and is
// strictly monotonic even though decodes finish out of submission order.
type ProgressEvent struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range.
// Aggregation carries it through untouched.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DetectionRecord is one labeled, confidence-scored object instance reported
// by a vision backend for a single image.
type DetectionRecord struct {
	ClassName  string  `json:"className"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"boundingBox"`
}

// ImageDetections is the raw backend output for a single image.
type ImageDetections struct {
	Domain     string            `json:"domain"`
	Detections []DetectionRecord `json:"detections"`
}

// ImageAnalysis holds the analysis record for one image, keyed by ImageName
// for lookup against the batch's display names.
type ImageAnalysis struct {
	ImageName  string            `json:"imageName"`
	Format     string            `json:"format"`
	SizeMB     float64           `json:"sizeMB"`
	Domain     string            `json:"domain"`
	Detections []DetectionRecord `json:"detections"`
}

// AnalysisSummary contains batch-level totals from an analysis run.
type AnalysisSummary struct {
	TotalImages    int      `json:"totalImages"`
	TotalSizeMB    float64  `json:"totalSizeMB"`
	AverageSizeMB  float64  `json:"averageSizeMB"`
	UniqueLabels   []string `json:"uniqueLabels"`
	ProcessingSecs float64  `json:"processingSeconds"`
}

// AnalysisResult is the complete output of an analysis run over a batch.
// PerImage entries are matched to descriptors by name, best effort: the batch
// may hold images that were never analyzed, and an analysis may reference
// images that have since been removed.
type AnalysisResult struct {
	Summary  AnalysisSummary `json:"summary"`
	PerImage []ImageAnalysis `json:"perImage"`
}
