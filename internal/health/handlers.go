// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/printquote/internal/common"
)

// ErrNotConfigured marks an optional dependency that is switched off. It does not
// fail readiness.
var ErrNotConfigured = errors.New("health: dependency not configured")

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the process-wide readiness flag. It is cleared when shutdown
// begins so load balancers drain the instance before the listener closes.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PingStorage(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker        Checker
	RedisTimeout   time.Duration
	StorageTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}
	ctx := r.Context()
	redisStatus, redisOK := probeStatus(h.Checker.PingRedis(ctx, timeoutOr(h.RedisTimeout, 300*time.Millisecond)))
	storageStatus, storageOK := probeStatus(h.Checker.PingStorage(ctx, timeoutOr(h.StorageTimeout, time.Second)))

	status := http.StatusOK
	if !redisOK || !storageOK {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, map[string]string{
		"redis":   redisStatus,
		"storage": storageStatus,
	})
}

func probeStatus(err error) (string, bool) {
	switch {
	case err == nil:
		return "ok", true
	case errors.Is(err, ErrNotConfigured):
		return "disabled", true
	default:
		return err.Error(), false
	}
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
