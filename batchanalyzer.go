// Package batchanalyzer provides client-side image batch assembly and
// detection analytics.
//
// A Session owns one bounded batch of images. Candidate files are validated,
// decoded and admitted through the ingestion pipeline; detection results from
// a vision backend (or any external analysis) are folded into aggregate
// statistics for display.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		batchanalyzer "github.com/menta2k/batch-analyzer"
//		"github.com/menta2k/batch-analyzer/pkg/types"
//	)
//
//	func main() {
//		session := batchanalyzer.NewSession()
//		session.OnProgress(func(ev types.ProgressEvent) {
//			fmt.Printf("decoded %d/%d\n", ev.Completed, ev.Total)
//		})
//
//		res := session.AddFiles(context.Background(), []types.FileInput{
//			{Name: "photo.jpg", ContentType: "image/jpeg", Size: int64(len(data)), Data: data},
//		})
//		for _, f := range res.Failures {
//			log.Printf("skipped %s: %v", f.Name, f.Err)
//		}
//
//		vm := session.Aggregate()
//		fmt.Printf("%d formats in batch\n", len(vm.FormatDistribution))
//	}
//
// The package consists of four main components:
//
// 1. Batch (pkg/batch): the ordered descriptor store with selection state
// 2. Ingest (pkg/ingest): the concurrent, capacity-bounded intake pipeline
// 3. Detection (pkg/detection): vision-backend orchestration over the batch
// 4. Stats (pkg/stats): the pure aggregation of analysis results
//
// The batch and its analysis live only for the lifetime of the session;
// nothing is persisted.
package batchanalyzer

import (
	"context"
	"fmt"

	"github.com/menta2k/batch-analyzer/pkg/batch"
	"github.com/menta2k/batch-analyzer/pkg/client"
	"github.com/menta2k/batch-analyzer/pkg/detection"
	"github.com/menta2k/batch-analyzer/pkg/ingest"
	"github.com/menta2k/batch-analyzer/pkg/processing"
	"github.com/menta2k/batch-analyzer/pkg/stats"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

// Version of the batch analyzer library
const Version = "1.0.0"

// Session owns one image batch and the pipeline, detection and aggregation
// wiring around it. A Session expects commands to be issued serially; it is
// not safe for concurrent use.
type Session struct {
	batch    *batch.Batch
	pipeline *ingest.Pipeline
	detector *detection.Detector
	model    string
	send     detection.SendOptions
	analysis *types.AnalysisResult
}

// NewSession creates a session with the default batch capacity and no vision
// backend. Detection requires a backend; everything else works without one.
func NewSession() *Session {
	return NewSessionWithCapacity(batch.DefaultMaxImages)
}

// NewSessionWithCapacity creates a session whose batch holds at most
// maxImages descriptors.
func NewSessionWithCapacity(maxImages int) *Session {
	return &Session{
		batch:    batch.NewWithCapacity(maxImages),
		pipeline: ingest.New(processing.NewProcessor()),
		send:     detection.DefaultSendOptions(),
	}
}

// SetBackend attaches a vision backend used by Analyze.
func (s *Session) SetBackend(c client.VisionClient, model string) {
	s.detector = detection.NewDetector(c)
	s.model = model
}

// SetSendOptions overrides how images are encoded for the vision backend.
func (s *Session) SetSendOptions(opts detection.SendOptions) {
	s.send = opts
}

// OnProgress registers a callback for decode progress during AddFiles.
func (s *Session) OnProgress(fn func(types.ProgressEvent)) {
	s.pipeline.OnProgress(fn)
}

// AddFiles submits candidate files to the ingestion pipeline. See
// ingest.Pipeline.Submit for the admission rules.
func (s *Session) AddFiles(ctx context.Context, candidates []types.FileInput) ingest.Result {
	return s.pipeline.Submit(ctx, s.batch, candidates)
}

// Images returns the admitted descriptors in display order.
func (s *Session) Images() []batch.ImageDescriptor {
	return s.batch.Descriptors()
}

// SelectedID returns the explicitly selected descriptor id, or "".
func (s *Session) SelectedID() string {
	return s.batch.SelectedID()
}

// Select marks a descriptor as selected. It returns a
// *batch.UnknownImageError when the id matches nothing.
func (s *Session) Select(id string) error {
	return s.batch.Select(id)
}

// Remove deletes a descriptor; a missing id is a no-op. Selection falls back
// to the new first descriptor when the selected one is removed.
func (s *Session) Remove(id string) {
	s.batch.Remove(id)
}

// Clear empties the batch and discards any analysis result.
func (s *Session) Clear() {
	s.batch.Clear()
	s.analysis = nil
}

// Analyze runs the configured vision backend over the current batch and
// retains the analysis for aggregation.
func (s *Session) Analyze(ctx context.Context) (*types.AnalysisResult, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("no vision backend configured")
	}
	result, err := s.detector.AnalyzeBatch(ctx, s.model, s.batch.Descriptors(), s.send)
	if err != nil {
		return nil, err
	}
	s.analysis = result
	return result, nil
}

// SetAnalysis installs an externally produced analysis result.
func (s *Session) SetAnalysis(result *types.AnalysisResult) {
	s.analysis = result
}

// Analysis returns the latest analysis result, or nil.
func (s *Session) Analysis() *types.AnalysisResult {
	return s.analysis
}

// Aggregate computes the view-model from the current batch and the latest
// analysis. It never fails; without an analysis it returns placeholders.
func (s *Session) Aggregate() stats.ViewModel {
	return stats.Aggregate(s.batch, s.analysis)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
