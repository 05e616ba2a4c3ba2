// Package marketcache provides a time-bounded read-through cache for the
// market-wide reference tables served by the exchange. A cache miss behaves
// exactly like a first-time fetch; the cache sits outside the report core.
package marketcache

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
)

// FillFunc fetches a table's raw payload from its origin.
type FillFunc func(ctx context.Context) ([]byte, error)

// Cache is a read-through cache over a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger arbor.ILogger
	now    func() time.Time
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a read-through cache with the given backing store and TTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached payload for key when it is younger than the TTL,
// otherwise calls fill and stores the result. When fill fails and a stale
// copy exists, the stale copy is returned so one unreachable origin degrades
// the report instead of aborting it.
func (c *Cache) Fetch(ctx context.Context, key string, fill FillFunc) ([]byte, error) {
	payload, fetchedAt, ok, err := c.store.Get(key)
	if err != nil && c.logger != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching from origin")
	}
	if err == nil && ok && c.now().Sub(fetchedAt) < c.ttl {
		return payload, nil
	}

	fresh, fillErr := fill(ctx)
	if fillErr != nil {
		if ok {
			if c.logger != nil {
				c.logger.Warn().Err(fillErr).Str("key", key).Msg("origin fetch failed, serving stale cache entry")
			}
			return payload, nil
		}
		return nil, fmt.Errorf("fill %q: %w", key, fillErr)
	}

	if putErr := c.store.Put(key, fresh, c.now()); putErr != nil && c.logger != nil {
		c.logger.Warn().Err(putErr).Str("key", key).Msg("cache write failed")
	}
	return fresh, nil
}
