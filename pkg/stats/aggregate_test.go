package stats

import (
	"reflect"
	"strings"
	"testing"

	"github.com/menta2k/batch-analyzer/pkg/batch"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

func makeBatch(t *testing.T, names ...string) *batch.Batch {
	t.Helper()
	b := batch.New()
	for _, name := range names {
		if !b.Admit(batch.NewDescriptor(name, 2048, 640, 480, nil)) {
			t.Fatalf("Failed to admit %s", name)
		}
	}
	return b
}

func detections(confidences ...float64) []types.DetectionRecord {
	out := make([]types.DetectionRecord, 0, len(confidences))
	for _, c := range confidences {
		out = append(out, types.DetectionRecord{ClassName: "object", Confidence: c})
	}
	return out
}

func TestAggregateWithoutAnalysis(t *testing.T) {
	b := makeBatch(t, "a.jpg", "b.png")

	vm := Aggregate(b, nil)

	if vm.Summary.Description != PlaceholderDescription {
		t.Errorf("Expected placeholder description, got %q", vm.Summary.Description)
	}
	if vm.Summary.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %d", vm.Summary.Confidence)
	}
	if vm.Dashboard.DetectionCount != 0 || vm.Dashboard.AverageConfidence != 0 || vm.Dashboard.ProcessingSecs != 0 {
		t.Errorf("Expected zeroed dashboard, got %+v", vm.Dashboard)
	}
	if len(vm.DetectionDistribution) != 0 {
		t.Errorf("Expected empty detection distribution, got %v", vm.DetectionDistribution)
	}
	if len(vm.FormatDistribution) != 2 {
		t.Errorf("Format distribution should not depend on analysis, got %v", vm.FormatDistribution)
	}
}

func TestFormatDistribution(t *testing.T) {
	b := makeBatch(t, "a.jpg", "b.PNG", "c.jpg")

	vm := Aggregate(b, nil)

	want := []FormatCount{
		{Format: "JPG", Count: 2},
		{Format: "PNG", Count: 1},
	}
	if !reflect.DeepEqual(vm.FormatDistribution, want) {
		t.Errorf("Expected %v, got %v", want, vm.FormatDistribution)
	}
}

func TestFormatDistributionUnknownAndTotal(t *testing.T) {
	b := makeBatch(t, "a.jpg", "noextension", "b.webp", "c.jpg")

	vm := Aggregate(b, nil)

	total := 0
	for _, fc := range vm.FormatDistribution {
		total += fc.Count
	}
	if total != b.Len() {
		t.Errorf("Format counts should sum to %d, got %d", b.Len(), total)
	}

	found := false
	for _, fc := range vm.FormatDistribution {
		if fc.Format == "UNKNOWN" && fc.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected UNKNOWN entry for extension-less name, got %v", vm.FormatDistribution)
	}
}

func TestSummaryForSelectedImage(t *testing.T) {
	b := makeBatch(t, "x.jpg", "y.jpg")

	analysis := &types.AnalysisResult{
		Summary: types.AnalysisSummary{TotalImages: 2, UniqueLabels: []string{"cat", "dog"}},
		PerImage: []types.ImageAnalysis{
			{ImageName: "x.jpg", Domain: "animals", Detections: detections(0.8, 0.6)},
			{ImageName: "y.jpg", Domain: "urban", Detections: detections(0.4)},
		},
	}

	// x.jpg is the implicit default selection (first descriptor)
	vm := Aggregate(b, analysis)

	if vm.Summary.Confidence != 70 {
		t.Errorf("Expected confidence 70, got %d", vm.Summary.Confidence)
	}
	if !strings.Contains(vm.Summary.Description, "x.jpg") {
		t.Errorf("Description should name the selected image, got %q", vm.Summary.Description)
	}
	if !strings.Contains(vm.Summary.Description, "2 objects") {
		t.Errorf("Description should report the detection count, got %q", vm.Summary.Description)
	}
	if !strings.Contains(vm.Summary.Description, "animals") {
		t.Errorf("Description should report the domain, got %q", vm.Summary.Description)
	}
}

func TestSummarySelectedImageWithoutDetections(t *testing.T) {
	b := makeBatch(t, "x.jpg")

	analysis := &types.AnalysisResult{
		Summary: types.AnalysisSummary{TotalImages: 1},
		PerImage: []types.ImageAnalysis{
			{ImageName: "x.jpg", Domain: "other", Detections: nil},
		},
	}

	vm := Aggregate(b, analysis)

	// Zero detections must not divide by zero
	if vm.Summary.Confidence != 0 {
		t.Errorf("Expected confidence 0 for zero detections, got %d", vm.Summary.Confidence)
	}
}

func TestSummaryFallsBackToOverview(t *testing.T) {
	b := makeBatch(t, "unanalyzed.jpg")

	analysis := &types.AnalysisResult{
		Summary: types.AnalysisSummary{TotalImages: 3, UniqueLabels: []string{"car", "bus", "tree"}},
		PerImage: []types.ImageAnalysis{
			{ImageName: "other.jpg", Detections: detections(0.9)},
		},
	}

	vm := Aggregate(b, analysis)

	if !strings.Contains(vm.Summary.Description, "3 images") {
		t.Errorf("Expected overview with image count, got %q", vm.Summary.Description)
	}
	if !strings.Contains(vm.Summary.Description, "3 distinct labels") {
		t.Errorf("Expected overview with label count, got %q", vm.Summary.Description)
	}
}

func TestDashboardDetectionCount(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{ImageName: "a.jpg", Detections: detections(0.5, 0.5, 0.5)},
			{ImageName: "b.jpg", Detections: detections(0.9)},
			{ImageName: "c.jpg"},
		},
	}

	vm := Aggregate(b, analysis)

	if vm.Dashboard.DetectionCount != 4 {
		t.Errorf("Expected 4 detections, got %d", vm.Dashboard.DetectionCount)
	}
}

func TestDashboardTwoLevelAverage(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	// Ten detections at 1.0 vs a single detection at 0.0: per-image means
	// are 100 and 0, so the figure is 50, not the flat average 91.
	many := detections(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{ImageName: "a.jpg", Detections: many},
			{ImageName: "b.jpg", Detections: detections(0)},
		},
	}

	vm := Aggregate(b, analysis)

	if vm.Dashboard.AverageConfidence != 50 {
		t.Errorf("Expected two-level average 50, got %d", vm.Dashboard.AverageConfidence)
	}
}

func TestDashboardAverageExcludesEmptyImages(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{ImageName: "a.jpg", Detections: detections(0.8)},
			{ImageName: "empty.jpg"},
		},
	}

	vm := Aggregate(b, analysis)

	if vm.Dashboard.AverageConfidence != 80 {
		t.Errorf("Images without detections must not drag the average: expected 80, got %d",
			vm.Dashboard.AverageConfidence)
	}
}

func TestDashboardAverageZeroWhenNoDetections(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{ImageName: "a.jpg"},
			{ImageName: "b.jpg"},
		},
	}

	vm := Aggregate(b, analysis)

	if vm.Dashboard.AverageConfidence != 0 {
		t.Errorf("Expected 0 when no image has detections, got %d", vm.Dashboard.AverageConfidence)
	}
}

func TestDetectionDistribution(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{
				ImageName: "a.jpg",
				Detections: []types.DetectionRecord{
					{ClassName: "cat", Confidence: 0.9},
					{ClassName: "dog", Confidence: 0.6},
				},
			},
			{
				ImageName: "b.jpg",
				Detections: []types.DetectionRecord{
					{ClassName: "dog", Confidence: 0.8},
					{ClassName: "Tree", Confidence: 0.5},
				},
			},
		},
	}

	vm := Aggregate(b, analysis)

	want := []LabelStat{
		{Label: "dog", Count: 2, AverageConfidence: 70},
		{Label: "cat", Count: 1, AverageConfidence: 90},
		{Label: "Tree", Count: 1, AverageConfidence: 50},
	}
	if !reflect.DeepEqual(vm.DetectionDistribution, want) {
		t.Errorf("Expected %v, got %v", want, vm.DetectionDistribution)
	}
}

func TestDetectionDistributionTieBreakFirstSeen(t *testing.T) {
	b := makeBatch(t, "a.jpg")

	analysis := &types.AnalysisResult{
		PerImage: []types.ImageAnalysis{
			{
				ImageName: "a.jpg",
				Detections: []types.DetectionRecord{
					{ClassName: "zebra", Confidence: 0.5},
					{ClassName: "ant", Confidence: 0.5},
				},
			},
		},
	}

	vm := Aggregate(b, analysis)

	if vm.DetectionDistribution[0].Label != "zebra" || vm.DetectionDistribution[1].Label != "ant" {
		t.Errorf("Ties should keep first-seen order, got %v", vm.DetectionDistribution)
	}
}

func TestAggregateIsPure(t *testing.T) {
	b := makeBatch(t, "a.jpg", "b.png", "plain")

	analysis := &types.AnalysisResult{
		Summary: types.AnalysisSummary{TotalImages: 2, UniqueLabels: []string{"cat"}, ProcessingSecs: 1.5},
		PerImage: []types.ImageAnalysis{
			{ImageName: "a.jpg", Domain: "animals", Detections: detections(0.7, 0.9)},
			{ImageName: "b.png", Domain: "nature", Detections: detections(0.2)},
		},
	}

	first := Aggregate(b, analysis)
	second := Aggregate(b, analysis)

	if !reflect.DeepEqual(first, second) {
		t.Error("Aggregate should be deterministic for identical inputs")
	}
}

func TestAggregateEmptyBatchAndAnalysis(t *testing.T) {
	b := batch.New()

	vm := Aggregate(b, &types.AnalysisResult{})

	if vm.Dashboard.DetectionCount != 0 || vm.Dashboard.AverageConfidence != 0 {
		t.Errorf("Expected zeroed dashboard, got %+v", vm.Dashboard)
	}
	if len(vm.FormatDistribution) != 0 {
		t.Errorf("Expected empty format distribution, got %v", vm.FormatDistribution)
	}
	if len(vm.DetectionDistribution) != 0 {
		t.Errorf("Expected empty detection distribution, got %v", vm.DetectionDistribution)
	}
}
