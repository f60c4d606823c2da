package ratelimit

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Memory is a per-process fixed window limiter for deployments without Redis.
type Memory struct {
	limiter *limiter.Limiter
	max     int
}

// NewMemory builds an in-memory limiter allowing max events per window.
func NewMemory(window time.Duration, max int) *Memory {
	if max <= 0 || window <= 0 {
		return &Memory{max: max}
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return &Memory{limiter: limiter.New(memory.NewStore(), rate), max: max}
}

// Allow registers an event for key.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	if m == nil || m.limiter == nil {
		max := 0
		if m != nil {
			max = m.max
		}
		return Decision{Allowed: true, Limit: max, Remaining: max, Reset: time.Now()}, nil
	}
	res, err := m.limiter.Get(ctx, key)
	if err != nil {
		return Decision{Limit: m.max}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
