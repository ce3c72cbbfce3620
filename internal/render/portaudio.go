package render

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice plays through the default output device
type PortAudioDevice struct {
	stream *portaudio.Stream
}

// NewPortAudioDevice creates an unopened device
func NewPortAudioDevice() *PortAudioDevice {
	return &PortAudioDevice{}
}

// Open initialises PortAudio and starts a non-interleaved stereo stream
func (d *PortAudioDevice) Open(sampleRate, framesPerBuffer int, cb Callback) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), framesPerBuffer, func(out [][]float32) {
		cb(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open default stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}

	d.stream = stream
	return nil
}

// Close stops the stream and terminates PortAudio
func (d *PortAudioDevice) Close() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Stop()
	if err != nil {
		return err
	}
	err = d.stream.Close()
	if err != nil {
		return err
	}
	d.stream = nil
	return portaudio.Terminate()
}
