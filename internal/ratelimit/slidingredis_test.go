package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	window := 2 * time.Second
	limiter := SlidingWindow{Client: client, Prefix: "test:", Window: window, Max: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 2-(i+1), d.Remaining)
	}

	d, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	mr.FastForward(window)
	d, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestSlidingWindowDoesNotCountRejections(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	start := time.Unix(1_700_000_000, 0)
	now := start
	limiter := SlidingWindow{Client: client, Prefix: "test:", Window: 2 * time.Second, Max: 1, Now: func() time.Time { return now }}
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.WithinDuration(t, start.Add(2*time.Second), d.Reset, time.Microsecond)

	now = start.Add(1500 * time.Millisecond)
	d, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.WithinDuration(t, start.Add(2*time.Second), d.Reset, time.Microsecond, "reset follows the oldest counted event")

	now = start.Add(2100 * time.Millisecond)
	d, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, d.Allowed, "the rejected attempt must not extend the window")
}

func TestSlidingWindowDisabled(t *testing.T) {
	d, err := SlidingWindow{}.Allow(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	m := NewMemory(time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := m.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := m.Allow(ctx, "a")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 2, d.Limit)

	d, err = NewMemory(0, 0).Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}
