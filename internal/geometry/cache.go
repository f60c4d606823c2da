package geometry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/printquote/internal/obs"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client yields a cache that never hits.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedExtractor memoises measurements by content hash so re-quoting the same file
// skips parsing. Cache failures are logged and never fail the extraction.
type CachedExtractor struct {
	Next   Extractor
	Cache  *Cache
	Prefix string
	Logger zerolog.Logger
}

// Extract returns the cached measurement for data or delegates to Next.
func (c CachedExtractor) Extract(ctx context.Context, data []byte) (ModelGeometry, error) {
	if c.Next == nil {
		return ModelGeometry{}, errors.New("geometry: extractor not configured")
	}
	if c.Cache == nil || len(data) == 0 {
		return c.Next.Extract(ctx, data)
	}
	key := c.key(data)

	var cached ModelGeometry
	hit, err := c.Cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		c.Logger.Warn().Err(err).Str("key", key).Msg("geometry cache read")
		obs.ObserveGeometryCache("error")
	case hit:
		obs.ObserveGeometryCache("hit")
		return cached, nil
	default:
		obs.ObserveGeometryCache("miss")
	}

	g, err := c.Next.Extract(ctx, data)
	if err != nil {
		return ModelGeometry{}, err
	}
	if err := c.Cache.SetJSON(ctx, key, g); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("geometry cache write")
	}
	return g, nil
}

func (c CachedExtractor) key(data []byte) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "geometry:"
	}
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}
