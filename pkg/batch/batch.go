package batch

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultMaxImages is the default capacity of a batch.
const DefaultMaxImages = 10

// ImageDescriptor represents one admitted image and its derived metadata.
// ID is assigned at admission and stable for the descriptor's lifetime;
// Name and Size never change after admission. Data is the untouched source
// content.
type ImageDescriptor struct {
	ID     string
	Name   string
	Size   int64
	Width  int
	Height int
	Data   []byte
}

// NewDescriptor builds a descriptor with a fresh id.
func NewDescriptor(name string, size int64, width, height int, data []byte) ImageDescriptor {
	return ImageDescriptor{
		ID:     uuid.New().String(),
		Name:   name,
		Size:   size,
		Width:  width,
		Height: height,
		Data:   data,
	}
}

// UnknownImageError is returned by Select when the id matches no descriptor.
type UnknownImageError struct {
	ID string
}

func (e *UnknownImageError) Error() string {
	return fmt.Sprintf("unknown image id: %s", e.ID)
}

// Batch is the ordered set of admitted descriptors plus the selection
// pointer. Insertion order is the canonical display order. A Batch is owned
// by a single session and is not safe for concurrent mutation.
type Batch struct {
	maxImages   int
	descriptors []ImageDescriptor
	selectedID  string
}

// New creates an empty batch with the default capacity.
func New() *Batch {
	return NewWithCapacity(DefaultMaxImages)
}

// NewWithCapacity creates an empty batch holding at most maxImages
// descriptors. Non-positive capacities fall back to the default.
func NewWithCapacity(maxImages int) *Batch {
	if maxImages < 1 {
		maxImages = DefaultMaxImages
	}
	return &Batch{maxImages: maxImages}
}

// MaxImages returns the batch capacity.
func (b *Batch) MaxImages() int {
	return b.maxImages
}

// Len returns the number of admitted descriptors.
func (b *Batch) Len() int {
	return len(b.descriptors)
}

// RemainingSlots returns how many more descriptors the batch can admit.
func (b *Batch) RemainingSlots() int {
	return b.maxImages - len(b.descriptors)
}

// Descriptors returns the admitted descriptors in display order. The returned
// slice is a copy; mutating it does not affect the batch.
func (b *Batch) Descriptors() []ImageDescriptor {
	out := make([]ImageDescriptor, len(b.descriptors))
	copy(out, b.descriptors)
	return out
}

// SelectedID returns the explicitly selected descriptor id, or "" when no
// explicit selection exists.
func (b *Batch) SelectedID() string {
	return b.selectedID
}

// Selected returns the effective selection: the explicitly selected
// descriptor when set, otherwise the first descriptor as the implicit
// default. The second return is false for an empty batch.
func (b *Batch) Selected() (ImageDescriptor, bool) {
	if b.selectedID != "" {
		for i := range b.descriptors {
			if b.descriptors[i].ID == b.selectedID {
				return b.descriptors[i], true
			}
		}
	}
	if len(b.descriptors) > 0 {
		return b.descriptors[0], true
	}
	return ImageDescriptor{}, false
}

// Admit appends a descriptor, preserving insertion order. It returns false
// without modifying the batch when the capacity is already reached.
func (b *Batch) Admit(d ImageDescriptor) bool {
	if len(b.descriptors) >= b.maxImages {
		return false
	}
	b.descriptors = append(b.descriptors, d)
	return true
}

// Remove deletes the descriptor with the given id. A missing id is a no-op.
// If the removed descriptor was the selected one, selection moves to the new
// first descriptor, or is cleared when the batch becomes empty.
func (b *Batch) Remove(id string) {
	idx := -1
	for i := range b.descriptors {
		if b.descriptors[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	b.descriptors = append(b.descriptors[:idx], b.descriptors[idx+1:]...)
	if b.selectedID != id {
		return
	}
	if len(b.descriptors) > 0 {
		b.selectedID = b.descriptors[0].ID
	} else {
		b.selectedID = ""
	}
}

// Select marks the descriptor with the given id as selected. It returns an
// UnknownImageError and leaves the batch unchanged when no descriptor
// matches.
func (b *Batch) Select(id string) error {
	for i := range b.descriptors {
		if b.descriptors[i].ID == id {
			b.selectedID = id
			return nil
		}
	}
	return &UnknownImageError{ID: id}
}

// Clear empties the batch and clears the selection unconditionally.
func (b *Batch) Clear() {
	b.descriptors = nil
	b.selectedID = ""
}
