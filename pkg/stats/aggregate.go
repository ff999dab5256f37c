// Package stats derives display statistics from a batch and its latest
// analysis. Aggregate is a pure transform: it never fails, never mutates its
// inputs, and degrades to placeholders when no analysis is available.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/menta2k/batch-analyzer/internal/utils"
	"github.com/menta2k/batch-analyzer/pkg/batch"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

// PlaceholderDescription is shown before any analysis has run.
const PlaceholderDescription = "No analysis available yet"

// SummaryView describes the batch for the summary panel. Confidence is a
// percentage rounded to the nearest integer.
type SummaryView struct {
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Confidence  int      `json:"confidence"`
}

// DashboardView holds the headline figures. AverageConfidence is a rounded
// percentage.
type DashboardView struct {
	DetectionCount    int     `json:"detectionCount"`
	AverageConfidence int     `json:"averageConfidence"`
	ProcessingSecs    float64 `json:"processingSeconds"`
}

// FormatCount is one entry of the format distribution.
type FormatCount struct {
	Format string `json:"format"`
	Count  int    `json:"count"`
}

// LabelStat is one entry of the detection distribution. AverageConfidence is
// a rounded percentage.
type LabelStat struct {
	Label             string `json:"label"`
	Count             int    `json:"count"`
	AverageConfidence int    `json:"averageConfidence"`
}

// ViewModel is the derived, read-only statistics object consumed by the
// presentation layer. It is recomputed on demand and never stored.
type ViewModel struct {
	Summary               SummaryView   `json:"summary"`
	Dashboard             DashboardView `json:"dashboard"`
	FormatDistribution    []FormatCount `json:"formatDistribution"`
	DetectionDistribution []LabelStat   `json:"detectionDistribution"`
}

// Aggregate maps the batch plus an optional analysis result into the
// view-model. A nil analysis yields the placeholder summary, a zeroed
// dashboard and an empty detection distribution; the format distribution
// depends only on the batch and is always populated.
func Aggregate(b *batch.Batch, analysis *types.AnalysisResult) ViewModel {
	vm := ViewModel{
		FormatDistribution: formatDistribution(b),
	}

	if analysis == nil {
		vm.Summary = SummaryView{
			Description: PlaceholderDescription,
			Labels:      []string{},
		}
		vm.DetectionDistribution = []LabelStat{}
		return vm
	}

	vm.Dashboard = dashboard(analysis)
	vm.Summary = summary(b, analysis, vm.Dashboard.AverageConfidence)
	vm.DetectionDistribution = detectionDistribution(analysis)
	return vm
}

// formatDistribution counts descriptors per display format, in first-seen
// order of each distinct format.
func formatDistribution(b *batch.Batch) []FormatCount {
	descriptors := b.Descriptors()
	index := make(map[string]int, len(descriptors))
	out := make([]FormatCount, 0, len(descriptors))
	for _, d := range descriptors {
		format := utils.DisplayFormat(d.Name)
		if i, ok := index[format]; ok {
			out[i].Count++
			continue
		}
		index[format] = len(out)
		out = append(out, FormatCount{Format: format, Count: 1})
	}
	return out
}

func summary(b *batch.Batch, analysis *types.AnalysisResult, overallConfidence int) SummaryView {
	labels := analysis.Summary.UniqueLabels
	if labels == nil {
		labels = []string{}
	}

	if selected, ok := b.Selected(); ok {
		if entry := findByName(analysis.PerImage, selected.Name); entry != nil {
			return SummaryView{
				Description: fmt.Sprintf("%s: %d objects detected in %s domain",
					entry.ImageName, len(entry.Detections), entry.Domain),
				Labels:     labels,
				Confidence: roundPercent(meanConfidence(entry.Detections)),
			}
		}
	}

	return SummaryView{
		Description: fmt.Sprintf("%d images analyzed, %d distinct labels found",
			analysis.Summary.TotalImages, len(labels)),
		Labels:     labels,
		Confidence: overallConfidence,
	}
}

func dashboard(analysis *types.AnalysisResult) DashboardView {
	var (
		detections int
		meanSum    float64
		withAny    int
	)
	for i := range analysis.PerImage {
		d := analysis.PerImage[i].Detections
		detections += len(d)
		if len(d) == 0 {
			continue
		}
		meanSum += meanConfidence(d)
		withAny++
	}

	// Two-level average: per-image mean first, then the mean of those
	// means, so an image with many detections cannot dominate the figure.
	avg := 0
	if withAny > 0 {
		avg = roundPercent(meanSum / float64(withAny))
	}

	return DashboardView{
		DetectionCount:    detections,
		AverageConfidence: avg,
		ProcessingSecs:    analysis.Summary.ProcessingSecs,
	}
}

// detectionDistribution groups all detections across all images by class
// name (case preserved), sorted by count descending with first-seen order
// breaking ties.
func detectionDistribution(analysis *types.AnalysisResult) []LabelStat {
	type acc struct {
		count int
		sum   float64
	}
	index := make(map[string]int)
	order := make([]string, 0, 16)
	totals := make([]acc, 0, 16)

	for i := range analysis.PerImage {
		for _, det := range analysis.PerImage[i].Detections {
			j, ok := index[det.ClassName]
			if !ok {
				j = len(totals)
				index[det.ClassName] = j
				order = append(order, det.ClassName)
				totals = append(totals, acc{})
			}
			totals[j].count++
			totals[j].sum += det.Confidence
		}
	}

	out := make([]LabelStat, 0, len(order))
	for j, label := range order {
		out = append(out, LabelStat{
			Label:             label,
			Count:             totals[j].count,
			AverageConfidence: roundPercent(totals[j].sum / float64(totals[j].count)),
		})
	}
	// Stable sort keeps first-seen order among equal counts.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// findByName returns the first analysis entry matching the display name.
// Duplicate names resolve to the first match.
func findByName(perImage []types.ImageAnalysis, name string) *types.ImageAnalysis {
	for i := range perImage {
		if perImage[i].ImageName == name {
			return &perImage[i]
		}
	}
	return nil
}

// meanConfidence is 0 for an empty detection list.
func meanConfidence(detections []types.DetectionRecord) float64 {
	if len(detections) == 0 {
		return 0
	}
	var sum float64
	for _, d := range detections {
		sum += d.Confidence
	}
	return sum / float64(len(detections))
}

func roundPercent(v float64) int {
	return int(math.Round(v * 100))
}
