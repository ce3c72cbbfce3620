package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
)

type scheduled struct {
	index int
	at    time.Duration
}

type fakeRenderer struct {
	mu        sync.Mutex
	ready     chan struct{}
	rate      int
	loads     [][]Entry
	schedules []scheduled
	now       time.Duration
	running   bool
	loadErr   error
}

func newFakeRenderer(rate int) *fakeRenderer {
	r := &fakeRenderer{ready: make(chan struct{}), rate: rate}
	close(r.ready)
	return r
}

func (r *fakeRenderer) Ready() <-chan struct{} { return r.ready }
func (r *fakeRenderer) SampleRate() int        { return r.rate }

func (r *fakeRenderer) Load(entries []Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return r.loadErr
	}
	r.loads = append(r.loads, entries)
	return nil
}

func (r *fakeRenderer) ScheduleVariant(index int, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = append(r.schedules, scheduled{index, at})
}

func (r *fakeRenderer) CurrentTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

func (r *fakeRenderer) Resume()  { r.mu.Lock(); r.running = true; r.mu.Unlock() }
func (r *fakeRenderer) Suspend() { r.mu.Lock(); r.running = false; r.mu.Unlock() }

func testEntries(rate int, labels ...string) []Entry {
	entries := make([]Entry, len(labels))
	for i, l := range labels {
		left := []float32{float32(i), float32(i)}
		entries[i] = Entry{BitrateLabel: l, DeclaredByteSize: 100, SampleRate: rate, Left: left, Right: left}
	}
	return entries
}

func TestBatch_TakeMovesOwnership(t *testing.T) {
	batch := NewBatch(testEntries(48000, "512", "2"))

	entries, err := batch.Take()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, batch.Consumed())
	assert.Equal(t, 2, batch.Len())
	assert.Nil(t, batch.entries)

	_, err = batch.Take()
	assert.ErrorIs(t, err, domain.ErrBatchConsumed)
}

func TestHandoff_DeliverOnce(t *testing.T) {
	renderer := newFakeRenderer(48000)
	h := New(renderer, zap.NewNop())

	require.NoError(t, h.Deliver(context.Background(), NewBatch(testEntries(48000, "512", "128", "2"))))
	assert.True(t, h.Delivered())
	assert.Equal(t, 3, h.VariantCount())
	require.Len(t, renderer.loads, 1)
	assert.Equal(t, "128", renderer.loads[0][1].BitrateLabel)

	err := h.Deliver(context.Background(), NewBatch(testEntries(48000, "64")))
	assert.ErrorIs(t, err, domain.ErrBatchDelivered)
	assert.Len(t, renderer.loads, 1)
}

func TestHandoff_DeliverWaitsForReady(t *testing.T) {
	renderer := &fakeRenderer{ready: make(chan struct{}), rate: 48000}
	h := New(renderer, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	batch := NewBatch(testEntries(48000, "512"))
	err := h.Deliver(ctx, batch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, batch.Consumed(), "batch must survive a cancelled delivery")

	close(renderer.ready)
	require.NoError(t, h.Deliver(context.Background(), batch))
}

func TestHandoff_DeliverCancelledWhileReady(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Ready and ctx.Done are both closed; repeat so either select branch is hit.
	for i := 0; i < 50; i++ {
		renderer := newFakeRenderer(48000)
		h := New(renderer, zap.NewNop())
		batch := NewBatch(testEntries(48000, "512"))

		err := h.Deliver(ctx, batch)

		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, batch.Consumed())
		assert.False(t, h.Delivered())
		assert.Empty(t, renderer.loads)
	}
}

func TestHandoff_DeliverRejectsRateMismatch(t *testing.T) {
	renderer := newFakeRenderer(48000)
	h := New(renderer, zap.NewNop())

	batch := NewBatch(testEntries(44100, "512"))
	err := h.Deliver(context.Background(), batch)

	assert.True(t, domain.IsDecodeError(err))
	assert.False(t, h.Delivered())
	assert.False(t, batch.Consumed())
}

func TestHandoff_DeliverLoadFailure(t *testing.T) {
	renderer := newFakeRenderer(48000)
	renderer.loadErr = errors.New("device gone")
	h := New(renderer, zap.NewNop())

	err := h.Deliver(context.Background(), NewBatch(testEntries(48000, "512")))
	assert.Error(t, err)
	assert.False(t, h.Delivered())
}

func TestHandoff_SwitchTo(t *testing.T) {
	renderer := newFakeRenderer(48000)
	h := New(renderer, zap.NewNop())

	assert.ErrorIs(t, h.SwitchTo(0), domain.ErrNotArmed)

	require.NoError(t, h.Deliver(context.Background(), NewBatch(testEntries(48000, "512", "128", "2"))))

	renderer.now = 1500 * time.Millisecond
	require.NoError(t, h.SwitchTo(2))
	require.Len(t, renderer.schedules, 1)
	assert.Equal(t, scheduled{2, 1500 * time.Millisecond}, renderer.schedules[0])
}

func TestHandoff_SwitchToOutOfRange(t *testing.T) {
	renderer := newFakeRenderer(48000)
	h := New(renderer, zap.NewNop())
	require.NoError(t, h.Deliver(context.Background(), NewBatch(testEntries(48000, "512", "2"))))

	for _, index := range []int{-1, 2, 100} {
		err := h.SwitchTo(index)
		assert.ErrorIs(t, err, domain.ErrVariantOutOfRange, "index %d", index)
	}
	assert.Empty(t, renderer.schedules)
}

func TestHandoff_SuspendResume(t *testing.T) {
	renderer := newFakeRenderer(48000)
	h := New(renderer, zap.NewNop())

	h.Resume()
	assert.True(t, renderer.running)
	h.Suspend()
	assert.False(t, renderer.running)
}
