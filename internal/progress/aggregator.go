package progress

import (
	"sync"

	"github.com/yourusername/bitswitch/internal/domain"
)

const (
	downloadWeight = 0.8
	decodeWeight   = 0.2
)

// UnknownSize is the registration sentinel for a variant without a size.
// The variant counts as registered but adds nothing to the declared total,
// so its producer should report decodes only. Stray bytes are capped at
// the declared total.
const UnknownSize = domain.UnknownSize

// Emitter receives every accepted (non-regressing) fraction
type Emitter interface {
	Emit(fraction float64)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(fraction float64)

// Emit calls f
func (f EmitterFunc) Emit(fraction float64) { f(fraction) }

// State is a point-in-time copy of the aggregate counters
type State struct {
	TotalVariants      int     `json:"total_variants"`
	VariantsRegistered int     `json:"variants_registered"`
	VariantsDecoded    int     `json:"variants_decoded"`
	TotalDeclaredBytes int64   `json:"total_declared_bytes"`
	TotalReceivedBytes int64   `json:"total_received_bytes"`
	Fraction           float64 `json:"fraction"`
}

// Aggregator folds byte and decode signals of one acquisition run into a
// single non-decreasing fraction. Create one per run.
type Aggregator struct {
	mu            sync.Mutex
	totalVariants int
	totalDeclared int64
	totalReceived int64
	registered    int
	decoded       int
	last          float64
	emitter       Emitter
}

// NewAggregator creates an aggregator expecting totalVariants registrations
func NewAggregator(totalVariants int, emitter Emitter) *Aggregator {
	if emitter == nil {
		emitter = EmitterFunc(func(float64) {})
	}
	return &Aggregator{
		totalVariants: totalVariants,
		emitter:       emitter,
	}
}

// Register records one variant's declared size
func (a *Aggregator) Register(declaredByteSize int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.registered++
	if declaredByteSize >= 0 {
		a.totalDeclared += declaredByteSize
	}
	a.recompute()
}

// Report accumulates received bytes and finished decodes
func (a *Aggregator) Report(delta domain.ProgressDelta) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if delta.Bytes > 0 {
		a.totalReceived += delta.Bytes
	}
	if delta.Decoded > 0 {
		a.decoded += delta.Decoded
	}
	a.recompute()
}

// Fraction returns the last emitted fraction
func (a *Aggregator) Fraction() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Snapshot returns a copy of the counters
func (a *Aggregator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{
		TotalVariants:      a.totalVariants,
		VariantsRegistered: a.registered,
		VariantsDecoded:    a.decoded,
		TotalDeclaredBytes: a.totalDeclared,
		TotalReceivedBytes: a.totalReceived,
		Fraction:           a.last,
	}
}

// recompute must be called with mu held
func (a *Aggregator) recompute() {
	if a.registered == 0 || a.totalVariants <= 0 {
		return
	}

	var byteTerm float64
	if a.totalDeclared > 0 {
		byteTerm = min(float64(a.totalReceived)/float64(a.totalDeclared), 1)
	}
	total := float64(a.totalVariants)
	fraction := (byteTerm*downloadWeight + float64(a.decoded)/total*decodeWeight) *
		(float64(a.registered) / total)
	if fraction > 1 {
		fraction = 1
	}

	if fraction < a.last {
		return
	}
	a.last = fraction
	a.emitter.Emit(fraction)
}
