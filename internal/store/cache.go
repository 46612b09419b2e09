package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/galois26/eventclash/internal/config"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-valued key store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores val for ttl. A non-positive ttl uses the cache default.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

// NewFromConfig returns nil when caching is disabled, a Redis cache when a
// redis_url is configured and the in-memory LRU otherwise.
func NewFromConfig(ctx context.Context, c config.CacheConfig) (Cache, error) {
	if !c.Enable {
		return nil, nil
	}
	if c.RedisURL == "" {
		return NewMemory(c.MaxKeys, c.TTL), nil
	}
	client, err := Connect(ctx, c.RedisURL)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, "eventclash:", c.TTL), nil
}

// EventsKey is the cache key for one source's events around a point.
// Coordinates are rounded to 3 decimals (about 100 m) so that nearby
// requests share an entry.
func EventsKey(source string, lat, lon, radiusKm float64) string {
	return fmt.Sprintf("events:%s:%.3f:%.3f:%g", source, lat, lon, radiusKm)
}
