// Package ratelimit throttles quote requests per client. A Redis sliding window is
// used when Redis is configured and an in-process fixed window otherwise.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Allower registers an event for key and decides whether it is within the limit.
type Allower interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
