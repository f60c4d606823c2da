package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/printquote/internal/resilience"
)

// URLFetcher downloads previously uploaded models by URL.
type URLFetcher struct {
	Client   resilience.HTTPClient
	MaxBytes int64
}

// Get fetches url. 404 and 410 map to ErrNotFound, other 4xx to ErrRejected and
// everything else that fails to ErrUnavailable.
func (f URLFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	resp, err := f.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch model: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, resp.Status)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrTooLarge, resp.ContentLength)
	}
	return readLimited(resp.Body, f.MaxBytes)
}
