package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/galois26/eventclash/internal/metrics"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/store"
)

type cachedSource struct {
	next  Source
	cache store.Cache
	ttl   time.Duration
}

// Cached stores the fetch results of next in c, keyed by source name and
// rounded query. Cache failures fall through to next.
func Cached(next Source, c store.Cache, ttl time.Duration) Source {
	if c == nil {
		return next
	}
	return &cachedSource{next: next, cache: c, ttl: ttl}
}

func (c *cachedSource) Name() string { return c.next.Name() }

func (c *cachedSource) Fetch(ctx context.Context, q Query) ([]model.Event, error) {
	key := store.EventsKey(c.Name(), q.Lat, q.Lon, q.RadiusKm)
	logger := slog.Default().With("module", "source", "source", c.Name(), "cache_key", key)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var events []model.Event
		if jerr := json.Unmarshal(raw, &events); jerr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return events, nil
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn("cache entry unreadable", "operation", "cache_get", "outcome", "failure")
	case errors.Is(err, store.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn("cache lookup failed", "operation", "cache_get", "outcome", "failure", "error", err)
	}

	events, err := c.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(events); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			logger.Warn("cache store failed", "operation", "cache_set", "outcome", "failure", "error", err)
		}
	}
	return events, nil
}
