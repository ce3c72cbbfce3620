package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yourusername/bitswitch/internal/domain"
	"gopkg.in/hraban/opus.v2"
)

// opusRate is the only output rate of the Ogg Opus stream decoder
const opusRate = 48000

var opusHeadMagic = []byte("OpusHead")

// DecodeOpus decodes an Ogg Opus buffer
func DecodeOpus(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open opus stream: %w", err)
	}
	defer stream.Close()

	// 120ms is the largest Opus frame
	pcm := make([]float32, opusRate/1000*120*channels)
	var interleaved []float32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := stream.ReadFloat32(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read opus: %w", err)
		}
		interleaved = append(interleaved, pcm[:n*channels]...)
	}

	return deinterleave(interleaved, channels, opusRate)
}

// opusChannels reads the channel count from the OpusHead identification header
func opusChannels(data []byte) (int, error) {
	idx := bytes.Index(data, opusHeadMagic)
	if idx < 0 || idx+10 > len(data) {
		return 0, fmt.Errorf("opus identification header not found")
	}
	channels := int(data[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("opus header declares %d channels", channels)
	}
	return channels, nil
}
