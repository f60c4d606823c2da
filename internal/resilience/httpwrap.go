package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// StatusError reports an upstream 5xx response that exhausted all retries.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resilience: upstream responded %s", e.Status)
}

// HTTPClient wraps an http.Client with retry, timeout and circuit-breaker logic.
// Responses below 500 are returned to the caller untouched and never retried.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Target      string
	Logger      zerolog.Logger
}

// Do executes the request applying retry semantics. The request body is buffered
// so it can be replayed. ErrOpenCircuit is returned when the breaker refuses.
// The per-attempt timeout only bounds headers; callers own the body read and
// should bound it with ctx.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := cl.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}
	target := cl.Target
	if target == "" {
		target = req.URL.Host
	}

	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			cl.observe(target, "open")
			if lastErr == nil {
				return nil, ErrOpenCircuit
			}
			return nil, fmt.Errorf("%w: %w", ErrOpenCircuit, lastErr)
		}
		resp, err := cl.doOnce(ctx, cloneRequest(ctx, req, body))
		switch {
		case err == nil && resp.StatusCode < http.StatusInternalServerError:
			breaker.Report(ctx, true)
			cl.observe(target, "ok")
			return resp, nil
		case err == nil:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			lastErr = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		default:
			lastErr = err
		}
		breaker.Report(ctx, false)
		cl.observe(target, "error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if attempt == maxAttempts {
			break
		}

		sleepFor := Backoff(baseBackoff, attempt, cl.Jitter)
		cl.Logger.Debug().Err(lastErr).Str("target", target).Int("attempt", attempt).Dur("backoff", sleepFor).Msg("upstream_retry")
		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		return cl.Client.Do(req)
	}
	// The timer must not cancel the body read once headers arrive, so it only
	// guards the round trip itself.
	callCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if !timer.Stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("resilience: upstream timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (cl HTTPClient) observe(target, result string) {
	if UpstreamAttempts != nil {
		UpstreamAttempts.WithLabelValues(target, result).Inc()
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func replayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	return data, nil
}

func cloneRequest(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return clone
}
