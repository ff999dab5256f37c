package detection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/menta2k/batch-analyzer/internal/utils"
	"github.com/menta2k/batch-analyzer/pkg/batch"
	"github.com/menta2k/batch-analyzer/pkg/client"
	"github.com/menta2k/batch-analyzer/pkg/processing"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for object detection
const DefaultPrompt = `You are an object detection engine.

Return JSON only:
{
  "domain": "one of: people, animals, vehicles, nature, urban, indoor, other",
  "detections": [
    {"className": "string", "confidence": 0.0, "boundingBox": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- List every clearly visible object, most prominent first, at most 25 entries.
- confidence is a value in [0,1].
- className: lowercase, concise, no punctuation or duplicates of the same instance.
- If nothing is detectable, return: {"domain":"other","detections":[]}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// SendOptions controls how images are encoded before being sent to the
// vision backend.
type SendOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

// DefaultSendOptions returns the encoding used when the caller does not care.
func DefaultSendOptions() SendOptions {
	return SendOptions{Format: "jpg", MaxDim: 1536, Quality: 85}
}

// Detector runs a vision backend over an admitted batch and assembles the
// analysis result consumed by the aggregation engine.
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	prompt    string
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient) *Detector {
	return &Detector{
		client:    c,
		processor: processing.NewProcessor(),
		prompt:    DefaultPrompt,
	}
}

// SetPrompt overrides the detection prompt.
func (d *Detector) SetPrompt(prompt string) {
	d.prompt = prompt
}

// TestVision tests if the model can actually see an image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imgB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imgB64)
}

// AnalyzeBatch runs detection over every descriptor and assembles the
// analysis result, keyed by display name. A backend failure for one image
// aborts the run; malformed model output never does (the clients degrade it
// to an empty detection list).
func (d *Detector) AnalyzeBatch(ctx context.Context, model string, descriptors []batch.ImageDescriptor, opts SendOptions) (*types.AnalysisResult, error) {
	started := time.Now()

	perImage := make([]types.ImageAnalysis, 0, len(descriptors))
	labelSeen := map[string]struct{}{}
	labels := make([]string, 0, 16)
	var totalMB float64

	for i := range descriptors {
		desc := &descriptors[i]

		imgB64, err := d.processor.PrepareForModel(desc.Data, opts.Format, opts.MaxDim, opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %s: %w", desc.Name, err)
		}

		raw, err := d.client.DetectObjects(ctx, model, d.prompt, imgB64)
		if err != nil {
			return nil, fmt.Errorf("detection failed for %s: %w", desc.Name, err)
		}

		detections := normalizeDetections(raw.Detections)
		for _, det := range detections {
			if _, ok := labelSeen[det.ClassName]; ok {
				continue
			}
			labelSeen[det.ClassName] = struct{}{}
			labels = append(labels, det.ClassName)
		}

		sizeMB := utils.BytesToMB(desc.Size)
		totalMB += sizeMB

		perImage = append(perImage, types.ImageAnalysis{
			ImageName:  desc.Name,
			Format:     utils.DisplayFormat(desc.Name),
			SizeMB:     sizeMB,
			Domain:     normalizeDomain(raw.Domain),
			Detections: detections,
		})
	}

	avgMB := 0.0
	if len(perImage) > 0 {
		avgMB = totalMB / float64(len(perImage))
	}

	return &types.AnalysisResult{
		Summary: types.AnalysisSummary{
			TotalImages:    len(perImage),
			TotalSizeMB:    totalMB,
			AverageSizeMB:  avgMB,
			UniqueLabels:   labels,
			ProcessingSecs: time.Since(started).Seconds(),
		},
		PerImage: perImage,
	}, nil
}

// normalizeDetections trims labels, drops unnamed entries and clamps
// confidences and boxes into [0,1].
func normalizeDetections(detections []types.DetectionRecord) []types.DetectionRecord {
	out := make([]types.DetectionRecord, 0, len(detections))
	for _, det := range detections {
		det.ClassName = strings.TrimSpace(det.ClassName)
		if det.ClassName == "" {
			continue
		}
		det.Confidence = clamp(det.Confidence, 0, 1)
		det.Box = types.Box{
			X: clamp(det.Box.X, 0, 1),
			Y: clamp(det.Box.Y, 0, 1),
			W: clamp(det.Box.W, 0, 1),
			H: clamp(det.Box.H, 0, 1),
		}
		out = append(out, det)
	}
	return out
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "unknown"
	}
	return domain
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
