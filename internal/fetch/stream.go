package fetch

import (
	"errors"
	"fmt"
	"io"

	"github.com/yourusername/bitswitch/internal/domain"
)

// ChunkStream is a single-pass, pull-based view of one response body.
// Every chunk is reported to the tracker before it is handed out.
type ChunkStream struct {
	variant  string
	declared int64
	received int64
	body     io.Reader
	decoder  io.Closer // non-nil when body unwraps a content encoding
	raw      io.Closer
	buf      []byte
	tracker  domain.ProgressTracker
	err      error
}

// DeclaredSize returns the size registered for this stream
func (s *ChunkStream) DeclaredSize() int64 {
	return s.declared
}

// Received returns the number of bytes delivered so far
func (s *ChunkStream) Received() int64 {
	return s.received
}

// Next returns the next chunk of the body, or io.EOF at the end.
// The returned slice is only valid until the following call.
func (s *ChunkStream) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.received += int64(n)
			if s.received > s.declared {
				s.err = &domain.NetworkError{
					Variant: s.variant,
					Err:     fmt.Errorf("received %d bytes, declared %d", s.received, s.declared),
				}
				return nil, s.err
			}
			s.tracker.Report(domain.ProgressDelta{Bytes: int64(n)})
			if errors.Is(err, io.EOF) {
				// Surface EOF on the next call so this chunk is not lost.
				s.err = s.finish()
			} else if err != nil {
				s.err = &domain.NetworkError{Variant: s.variant, Err: err}
			}
			return s.buf[:n], nil
		}

		if errors.Is(err, io.EOF) {
			s.err = s.finish()
			return nil, s.err
		}
		if err != nil {
			s.err = &domain.NetworkError{Variant: s.variant, Err: err}
			return nil, s.err
		}
	}
}

// finish validates the byte count at end of body
func (s *ChunkStream) finish() error {
	if s.received < s.declared {
		return &domain.NetworkError{
			Variant: s.variant,
			Err:     fmt.Errorf("%w: received %d of %d bytes", io.ErrUnexpectedEOF, s.received, s.declared),
		}
	}
	return io.EOF
}

// Close releases the response body
func (s *ChunkStream) Close() error {
	if s.err == nil {
		s.err = errors.New("stream closed")
	}
	if s.decoder != nil {
		s.decoder.Close()
	}
	return s.raw.Close()
}

// ReadAll drains the stream into one buffer sized to the declared length
func ReadAll(stream *ChunkStream) ([]byte, error) {
	defer stream.Close()

	data := make([]byte, 0, stream.DeclaredSize())
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
}
