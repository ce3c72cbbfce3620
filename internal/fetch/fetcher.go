package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
)

const defaultChunkSize = 32 * 1024

// Config controls how responses are interpreted
type Config struct {
	// SizeHeader carries the uncompressed size when a content encoding was applied
	SizeHeader string
	// ChunkSize bounds a single read from the body
	ChunkSize int
}

// Fetcher issues one streaming GET per variant
type Fetcher struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(client *http.Client, config Config, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if config.SizeHeader == "" {
		config.SizeHeader = "X-File-Size"
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}
	return &Fetcher{
		client: client,
		config: config,
		logger: logger,
	}
}

// Fetch requests the variant and returns its body as a chunk stream.
// The declared size is registered with tracker exactly once before returning.
func (f *Fetcher) Fetch(ctx context.Context, variant domain.Variant, tracker domain.ProgressTracker) (*ChunkStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, variant.SourceLocator, nil)
	if err != nil {
		return nil, &domain.NetworkError{Variant: variant.BitrateLabel, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Variant: variant.BitrateLabel, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &domain.NetworkError{
			Variant:    variant.BitrateLabel,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", http.StatusText(resp.StatusCode)),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &domain.NetworkError{Variant: variant.BitrateLabel, Err: domain.ErrNoStreamingBody}
	}

	size, err := f.declaredSize(resp)
	if err != nil {
		resp.Body.Close()
		return nil, &domain.NetworkError{Variant: variant.BitrateLabel, Err: err}
	}

	body, decoder, err := decodedBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, &domain.NetworkError{Variant: variant.BitrateLabel, Err: err}
	}

	f.logger.Debug("Variant response received",
		zap.String("bitrate", variant.BitrateLabel),
		zap.String("url", variant.SourceLocator),
		zap.Int64("size", size))

	tracker.Register(size)

	return &ChunkStream{
		variant:  variant.BitrateLabel,
		declared: size,
		body:     body,
		decoder:  decoder,
		raw:      resp.Body,
		buf:      make([]byte, f.config.ChunkSize),
		tracker:  tracker,
	}, nil
}

// declaredSize resolves the payload size from the response headers.
// With a content encoding applied, Content-Length describes the encoded
// payload, so the uncompressed size header is used instead.
func (f *Fetcher) declaredSize(resp *http.Response) (int64, error) {
	if resp.Uncompressed || resp.Header.Get("Content-Encoding") != "" {
		return parseSize(resp.Header.Get(f.config.SizeHeader))
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength, nil
	}
	return parseSize(resp.Header.Get("Content-Length"))
}

func parseSize(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrSizeUnknown
	}
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid value %q", domain.ErrSizeUnknown, raw)
	}
	return size, nil
}

// decodedBody undoes a content encoding the transport left in place
func decodedBody(resp *http.Response) (io.Reader, io.Closer, error) {
	if resp.Uncompressed {
		return resp.Body, nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip body: %w", err)
		}
		return zr, zr, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding: %s", resp.Header.Get("Content-Encoding"))
	}
}
