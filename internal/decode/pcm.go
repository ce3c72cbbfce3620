package decode

import (
	"fmt"

	"github.com/yourusername/bitswitch/internal/domain"
)

// deinterleave splits interleaved samples into planar channels.
// Sources with more than two channels keep only the first two.
func deinterleave(samples []float32, channels, sampleRate int) (*domain.DecodedAudio, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	frames := len(samples) / channels
	keep := channels
	if keep > 2 {
		keep = 2
	}

	planar := make([][]float32, keep)
	for c := range planar {
		planar[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * channels
		for c := 0; c < keep; c++ {
			planar[c][i] = samples[base+c]
		}
	}

	return domain.NewDecodedAudio(planar, sampleRate)
}
