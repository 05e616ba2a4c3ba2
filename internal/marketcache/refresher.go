package marketcache

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Refresher re-fills cached tables on a cron schedule so long-running
// processes keep the market-wide snapshot warm between reports.
type Refresher struct {
	cron   *cron.Cron
	cache  *Cache
	logger arbor.ILogger
}

// NewRefresher creates a Refresher over the given cache.
func NewRefresher(cache *Cache, logger arbor.ILogger) *Refresher {
	return &Refresher{
		cron:   cron.New(cron.WithSeconds()),
		cache:  cache,
		logger: logger,
	}
}

// Register schedules a periodic refresh for one cached table.
func (r *Refresher) Register(spec, key string, fill FillFunc) error {
	_, err := r.cron.AddFunc(spec, func() {
		fresh, fillErr := fill(context.Background())
		if fillErr != nil {
			if r.logger != nil {
				r.logger.Warn().Err(fillErr).Str("key", key).Msg("scheduled refresh failed")
			}
			return
		}
		if putErr := r.cache.store.Put(key, fresh, r.cache.now()); putErr != nil && r.logger != nil {
			r.logger.Warn().Err(putErr).Str("key", key).Msg("scheduled refresh write failed")
		}
	})
	if err != nil {
		return fmt.Errorf("register refresh for %q: %w", key, err)
	}
	return nil
}

// AddTask schedules an arbitrary named task alongside the table refreshes.
func (r *Refresher) AddTask(spec, name string, task func()) error {
	if _, err := r.cron.AddFunc(spec, task); err != nil {
		return fmt.Errorf("register task %q: %w", name, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (r *Refresher) Start() {
	r.cron.Start()
	if r.logger != nil {
		r.logger.Info().Msg("cache refresher started")
	}
}

// Stop stops the cron scheduler.
func (r *Refresher) Stop() {
	r.cron.Stop()
	if r.logger != nil {
		r.logger.Info().Msg("cache refresher stopped")
	}
}
