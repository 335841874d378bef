package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/couchcryptid/swiss-hydro-service/internal/domain"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	snapshotKey = "snapshot"
	// retryLoadAfter bounds how long a failed reload is remembered.
	retryLoadAfter = 30 * time.Second
)

// SnapshotLoader reads the latest persisted snapshot.
type SnapshotLoader interface {
	LoadSnapshot() (*domain.Snapshot, error)
}

// Cache holds the snapshot served to readers. The last published snapshot
// lives behind an atomic pointer; a TTL layer in front of it reloads from
// persisted storage once the entry expires or is invalidated.
type Cache struct {
	current atomic.Pointer[domain.Snapshot]
	ttl     gcache.Cache
	ttlDur  time.Duration
	loader  SnapshotLoader
	metrics *observability.Metrics
	logger  *slog.Logger

	// mu orders installs into current and ttl; loads run outside it.
	mu sync.Mutex
}

// New creates a Cache whose TTL entries expire after ttl on clk.
func New(loader SnapshotLoader, ttl time.Duration, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		ttl: gcache.New(1).
			LRU().
			Expiration(ttl).
			Clock(clk).
			Build(),
		ttlDur:  ttl,
		loader:  loader,
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns the current snapshot. It never returns nil: before anything was
// published or persisted it returns an empty snapshot. A reload never
// replaces a snapshot published while it ran, nor a newer one.
func (c *Cache) Get() *domain.Snapshot {
	if v, err := c.ttl.GetIFPresent(snapshotKey); err == nil {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return v.(*domain.Snapshot)
	}

	prev := c.current.Load()
	snap, err := c.loader.LoadSnapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current.Load()
	if cur != prev {
		// Published during the load; Publish already refreshed the TTL entry.
		c.metrics.CacheLookups.WithLabelValues("stale").Inc()
		return cur
	}

	if err != nil {
		c.metrics.CacheLookups.WithLabelValues("fallback").Inc()
		c.logger.Debug("snapshot reload failed, serving last published", "error", err)
		if cur == nil {
			cur = domain.EmptySnapshot()
		}
		c.setFor(cur, min(retryLoadAfter, c.ttlDur))
		return cur
	}

	if cur != nil && snap.BuiltAt.Before(cur.BuiltAt) {
		c.metrics.CacheLookups.WithLabelValues("stale").Inc()
		c.logger.Debug("persisted snapshot older than published, keeping published",
			"persisted_built_at", snap.BuiltAt, "published_built_at", cur.BuiltAt)
		c.set(cur)
		return cur
	}

	c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	c.current.Store(snap)
	c.set(snap)
	return snap
}

// Publish replaces the current snapshot as a whole.
func (c *Cache) Publish(snap *domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(snap)
	c.set(snap)
}

// Invalidate drops the TTL entry so the next Get reloads from storage.
func (c *Cache) Invalidate() {
	c.ttl.Purge()
	c.logger.Info("snapshot cache cleared")
}

// Warm publishes the persisted snapshot so it is served right away after a
// restart. The loader's error is returned unchanged.
func (c *Cache) Warm() error {
	snap, err := c.loader.LoadSnapshot()
	if err != nil {
		return err
	}
	c.Publish(snap)
	c.logger.Info("snapshot restored from storage", "stations", len(snap.Stations), "built_at", snap.BuiltAt)
	return nil
}

// Ready reports whether a snapshot has been published or restored.
func (c *Cache) Ready() bool {
	return c.current.Load() != nil
}

func (c *Cache) set(snap *domain.Snapshot) {
	c.setFor(snap, c.ttlDur)
}

func (c *Cache) setFor(snap *domain.Snapshot, d time.Duration) {
	if err := c.ttl.SetWithExpire(snapshotKey, snap, d); err != nil {
		c.logger.Warn("snapshot cache set failed", "error", err)
	}
}
