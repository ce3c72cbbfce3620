package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/yourusername/bitswitch/internal/domain"
)

// DecodeMP3 decodes an MP3 buffer.
// The decoder always yields 16-bit little-endian stereo.
func DecodeMP3(_ context.Context, data []byte) (*domain.DecodedAudio, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}

	return deinterleave(samples, 2, d.SampleRate())
}
