package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow implements a sliding window rate limiter backed by Redis sorted
// sets. Rejected events are removed again so a client that keeps retrying while
// limited is not locked out past the window.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	until := now.Add(l.Window)
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: until}, nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-l.Window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: l.Max, Reset: until}, err
	}

	current := int(countCmd.Val())
	if oldest := oldestCmd.Val(); len(oldest) == 1 {
		until = time.Unix(0, int64(oldest[0].Score)).Add(l.Window)
	}
	if current > l.Max {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Decision{Limit: l.Max, Reset: until}, err
		}
		return Decision{Allowed: false, Limit: l.Max, Remaining: 0, Reset: until}, nil
	}
	return Decision{Allowed: true, Limit: l.Max, Remaining: l.Max - current, Reset: until}, nil
}
