package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/menta2k/batch-analyzer/internal/utils"
	"github.com/menta2k/batch-analyzer/pkg/batch"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

// Decoder extracts pixel dimensions from raw image content. Implementations
// must be safe for concurrent use: Submit runs one decode per candidate in
// parallel.
type Decoder interface {
	DecodeDimensions(ctx context.Context, data []byte) (width, height int, err error)
}

// DecodeFailure records one candidate whose decode failed. It never aborts
// the sibling decodes or the submission as a whole.
type DecodeFailure struct {
	Name string
	Err  error
}

func (f DecodeFailure) Error() string {
	return fmt.Sprintf("decode failed for %s: %v", f.Name, f.Err)
}

func (f DecodeFailure) Unwrap() error {
	return f.Err
}

// Result describes the outcome of one submission.
type Result struct {
	// Accepted holds the newly admitted descriptors in original submission
	// order.
	Accepted []batch.ImageDescriptor
	// Dropped counts candidates skipped without error: non-image content
	// types and candidates beyond the batch's remaining capacity.
	Dropped int
	// Failures lists candidates whose decode failed.
	Failures []DecodeFailure
}

// Pipeline validates, decodes and admits candidate files into a batch.
type Pipeline struct {
	decoder  Decoder
	progress func(types.ProgressEvent)
}

// New creates a pipeline around the given decoder.
func New(decoder Decoder) *Pipeline {
	return &Pipeline{decoder: decoder}
}

// OnProgress registers a callback invoked as each decode of a submission
// completes. The callback runs on a decode goroutine and must not block for
// long. Do not call while a submission is in flight.
func (p *Pipeline) OnProgress(fn func(types.ProgressEvent)) {
	p.progress = fn
}

// Submit admits candidate files into the batch.
//
// Non-image candidates are dropped silently, as are candidates beyond the
// batch's remaining capacity (in given order). The surviving candidates are
// decoded concurrently; a progress event fires as each decode completes, so
// events arrive in completion order while Completed stays monotonic. The
// batch is mutated exactly once, after every decode has finished, with the
// admitted descriptors appended in original submission order. A failed decode
// removes only its own candidate from the admitted set.
//
// If the batch was empty with no selection before the call, the first newly
// admitted descriptor becomes selected.
func (p *Pipeline) Submit(ctx context.Context, b *batch.Batch, candidates []types.FileInput) Result {
	var res Result

	images := make([]types.FileInput, 0, len(candidates))
	for _, c := range candidates {
		if utils.IsImageContentType(c.ContentType) {
			images = append(images, c)
		} else {
			res.Dropped++
		}
	}
	if slots := b.RemainingSlots(); len(images) > slots {
		if slots < 0 {
			slots = 0
		}
		res.Dropped += len(images) - slots
		images = images[:slots]
	}
	if len(images) == 0 {
		return res
	}

	type outcome struct {
		desc    batch.ImageDescriptor
		failure *DecodeFailure
	}

	// One goroutine per candidate; each writes only its own slot, so the
	// final admitted order is the submission order regardless of which
	// decode finishes first.
	outcomes := make([]outcome, len(images))
	total := len(images)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := images[i]
			w, h, err := p.decoder.DecodeDimensions(ctx, in.Data)
			if err != nil {
				outcomes[i].failure = &DecodeFailure{Name: in.Name, Err: err}
			} else {
				outcomes[i].desc = batch.NewDescriptor(in.Name, in.Size, w, h, in.Data)
			}

			// The callback runs under the counter lock so observers see
			// Completed values in order.
			mu.Lock()
			completed++
			if p.progress != nil {
				p.progress(types.ProgressEvent{Completed: completed, Total: total})
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	wasUnselected := b.Len() == 0 && b.SelectedID() == ""
	for i := range outcomes {
		if outcomes[i].failure != nil {
			res.Failures = append(res.Failures, *outcomes[i].failure)
			continue
		}
		if b.Admit(outcomes[i].desc) {
			res.Accepted = append(res.Accepted, outcomes[i].desc)
		}
	}
	if wasUnselected && len(res.Accepted) > 0 {
		_ = b.Select(res.Accepted[0].ID)
	}
	return res
}
