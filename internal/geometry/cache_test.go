package geometry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCachedExtractorMemoisesByContent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	var calls atomic.Int32
	next := ExtractorFunc(func(_ context.Context, data []byte) (ModelGeometry, error) {
		calls.Add(1)
		return ModelGeometry{VolumeMM3: float64(len(data)), Extents: Extents{X: 1, Y: 2, Z: 3}}, nil
	})
	extractor := CachedExtractor{Next: next, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()}

	ctx := context.Background()
	first, err := extractor.Extract(ctx, []byte("model-a"))
	require.NoError(t, err)
	second, err := extractor.Extract(ctx, []byte("model-a"))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, calls.Load())

	_, err = extractor.Extract(ctx, []byte("model-bb"))
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = extractor.Extract(ctx, []byte("model-a"))
	require.NoError(t, err)
	require.EqualValues(t, 3, calls.Load())
}

func TestCachedExtractorDoesNotCacheFailures(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	var calls atomic.Int32
	next := ExtractorFunc(func(context.Context, []byte) (ModelGeometry, error) {
		calls.Add(1)
		return ModelGeometry{}, ErrUnreadable
	})
	extractor := CachedExtractor{Next: next, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()}

	for i := 0; i < 2; i++ {
		_, err := extractor.Extract(context.Background(), []byte("broken"))
		require.ErrorIs(t, err, ErrUnreadable)
	}
	require.EqualValues(t, 2, calls.Load())
}

func TestCachedExtractorSurvivesRedisOutage(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	defer func() { _ = client.Close() }()

	next := ExtractorFunc(func(context.Context, []byte) (ModelGeometry, error) {
		return ModelGeometry{VolumeMM3: 8}, nil
	})
	extractor := CachedExtractor{Next: next, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()}

	g, err := extractor.Extract(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.Equal(t, 8.0, g.VolumeMM3)
}

func TestCachedExtractorWithoutNext(t *testing.T) {
	_, err := CachedExtractor{}.Extract(context.Background(), []byte("x"))
	require.True(t, err != nil && !errors.Is(err, ErrUnreadable))
}
