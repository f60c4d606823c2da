// Package storage resolves model references to bytes. A reference is either an
// http(s) URL or a key in the model bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced model does not exist.
	ErrNotFound = errors.New("storage: model not found")
	// ErrTooLarge is returned when a model exceeds the configured byte limit.
	ErrTooLarge = errors.New("storage: model exceeds size limit")
	// ErrRejected is returned when a URL host refuses the request with a 4xx status.
	ErrRejected = errors.New("storage: model reference rejected")
	// ErrUnavailable wraps transport and upstream failures.
	ErrUnavailable = errors.New("storage: upstream unavailable")
	// ErrNotConfigured is returned when a reference kind has no backend.
	ErrNotConfigured = errors.New("storage: backend not configured")
)

// DefaultMaxBytes caps model downloads when no limit is configured.
const DefaultMaxBytes int64 = 64 << 20

// Getter reads a model by key or URL.
type Getter interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Resolver dispatches references to the URL fetcher or the object store.
type Resolver struct {
	Objects Getter
	URLs    Getter
}

// IsURL reports whether ref should be fetched over HTTP.
func IsURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Get resolves ref to model bytes.
func (r Resolver) Get(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	backend, kind := r.Objects, "object storage"
	if IsURL(ref) {
		backend, kind = r.URLs, "url fetch"
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, kind)
	}
	return backend.Get(ctx, ref)
}

func readLimited(body io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}
