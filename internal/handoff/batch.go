package handoff

import (
	"fmt"
	"sync"

	"github.com/yourusername/bitswitch/internal/domain"
)

// Entry is one variant inside a transfer batch
type Entry struct {
	BitrateLabel     string
	DeclaredByteSize int64
	SampleRate       int
	Left             []float32
	Right            []float32 // same backing array as Left for mono sources
}

// Frames returns the sample frames per channel
func (e Entry) Frames() int {
	return len(e.Left)
}

// Batch is the ordered set of decoded variants handed to the renderer.
// Ownership of the sample memory moves with Take; the batch keeps no
// references afterwards.
type Batch struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	taken   bool
}

// NewBatch wraps entries in a batch
func NewBatch(entries []Entry) *Batch {
	return &Batch{
		entries: entries,
		size:    len(entries),
	}
}

// Len returns the number of variants, also after Take
func (b *Batch) Len() int {
	return b.size
}

// Take moves the entries out of the batch. It succeeds once.
func (b *Batch) Take() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.taken {
		return nil, domain.ErrBatchConsumed
	}
	b.taken = true
	entries := b.entries
	b.entries = nil
	return entries, nil
}

// Consumed reports whether Take has already been called
func (b *Batch) Consumed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.taken
}

// checkRate verifies every entry was decoded at rate
func (b *Batch) checkRate(rate int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.taken {
		return domain.ErrBatchConsumed
	}
	for _, e := range b.entries {
		if e.SampleRate != rate {
			return &domain.DecodeError{
				Variant: e.BitrateLabel,
				Err:     fmt.Errorf("sample rate %d Hz does not match renderer rate %d Hz", e.SampleRate, rate),
			}
		}
	}
	return nil
}
