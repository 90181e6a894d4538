package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/core/ports"
)

// PerformanceCache holds the per-strategy rolling aggregates the selector
// consults. The snapshot is replaced wholesale through an atomic pointer, never
// mutated in place, so readers are lock-free. A stale or empty cache never
// blocks a request: when the synchronous refresh fails the previous snapshot
// (or an empty one) is served and the selector applies hard-coded defaults.
type PerformanceCache struct {
	store  ports.OutcomeStore
	ttl    time.Duration
	window time.Duration
	logger *slog.Logger
	now    func() time.Time

	snapshot  atomic.Pointer[domain.PerformanceSnapshot]
	refreshMu sync.Mutex
}

func NewPerformanceCache(store ports.OutcomeStore, ttl, window time.Duration, logger *slog.Logger) *PerformanceCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	c := &PerformanceCache{
		store:  store,
		ttl:    ttl,
		window: window,
		logger: logger,
		now:    time.Now,
	}
	c.snapshot.Store(&domain.PerformanceSnapshot{})
	return c
}

// Snapshot returns a fresh view, refreshing synchronously when the TTL has
// passed. This is the one place a request can incur an extra store round trip.
func (c *PerformanceCache) Snapshot(ctx context.Context) *domain.PerformanceSnapshot {
	current := c.snapshot.Load()
	if current.Fresh(c.now(), c.ttl) {
		return current
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	current = c.snapshot.Load()
	if current.Fresh(c.now(), c.ttl) {
		return current
	}

	metrics, err := c.store.StrategyPerformance(ctx, c.window)
	if err != nil {
		c.logger.Warn("performance cache refresh failed, serving stale snapshot", "error", err)
		return current
	}

	next := &domain.PerformanceSnapshot{
		Metrics:   metrics,
		FetchedAt: c.now(),
	}
	c.snapshot.Store(next)
	return next
}

// Replace swaps in a snapshot built elsewhere (the optimizer pass).
func (c *PerformanceCache) Replace(snapshot *domain.PerformanceSnapshot) {
	if snapshot == nil {
		return
	}
	c.snapshot.Store(snapshot)
}
