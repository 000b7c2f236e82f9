package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
)

// DefaultFetchTimeout bounds a single image download.
const DefaultFetchTimeout = 30 * time.Second

// maxImageBytes caps a download; wardrobe photos are small and anything
// larger is almost certainly not an image we can hash.
const maxImageBytes = 32 << 20

// HTTPImageFetcher downloads image bytes over HTTP. It satisfies
// engine.ImageFetcher and reports every failure as engine.FetchError so the
// detector can classify it per record.
type HTTPImageFetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPImageFetcher constructs a fetcher with the given per-request
// timeout; zero means DefaultFetchTimeout.
func NewHTTPImageFetcher(timeout time.Duration, logger *zap.Logger) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPImageFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("image_fetcher"),
	}
}

// Fetch downloads one image.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &engine.FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("image download failed", zap.String("url", url), zap.Error(err))
		return nil, &engine.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		f.logger.Warn("image download rejected", zap.String("url", url), zap.Error(err))
		return nil, &engine.FetchError{URL: url, Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, &engine.FetchError{URL: url, Err: err}
	}
	return data, nil
}
