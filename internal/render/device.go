package render

import (
	"errors"
	"sync"
)

// Callback fills one planar output block
type Callback func(out [][]float32)

// Device is an audio output that pulls blocks from a callback
type Device interface {
	Open(sampleRate, framesPerBuffer int, cb Callback) error
	Close() error
}

// ManualDevice is driven by its caller instead of a sound card.
// Tests and offline rendering pump it block by block.
type ManualDevice struct {
	mu              sync.Mutex
	cb              Callback
	framesPerBuffer int
	OpenErr         error
}

// Open stores the callback
func (d *ManualDevice) Open(sampleRate, framesPerBuffer int, cb Callback) error {
	if d.OpenErr != nil {
		return d.OpenErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	d.framesPerBuffer = framesPerBuffer
	return nil
}

// Close detaches the callback
func (d *ManualDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = nil
	return nil
}

// Pump renders one block of frames and returns the left and right channels
func (d *ManualDevice) Pump(frames int) ([]float32, []float32, error) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb == nil {
		return nil, nil, errors.New("device is not open")
	}

	out := [][]float32{make([]float32, frames), make([]float32, frames)}
	cb(out)
	return out[0], out[1], nil
}

// PumpBuffer renders one block of the size the device was opened with
func (d *ManualDevice) PumpBuffer() ([]float32, []float32, error) {
	d.mu.Lock()
	frames := d.framesPerBuffer
	d.mu.Unlock()
	return d.Pump(frames)
}
