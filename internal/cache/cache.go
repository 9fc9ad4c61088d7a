// Package cache memoizes the resolved catalog for a configurable TTL.
//
// Readers load the current snapshot through an atomic pointer and never
// lock. When the snapshot has expired, the first caller starts one upstream
// fetch and every concurrent caller waits on that same fetch. Failed fetches
// fall back to the stale in-memory snapshot, then to the on-disk backup.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/logging"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a fetched snapshot is served before refreshing.
	DefaultTTL = 60 * time.Second
	// DefaultFetchTimeout bounds a single upstream fetch.
	DefaultFetchTimeout = 30 * time.Second

	refreshKey = "catalog"
)

// ErrClosed is returned by Get and Refresh after Close.
var ErrClosed = errors.New("catalog cache closed")

type entry struct {
	snap    *catalog.Snapshot
	expires time.Time
}

// Cache serves catalog snapshots, refreshing them from a Source.
type Cache struct {
	source       catalog.Source
	backup       *catalog.Backup
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *log.Logger

	group   singleflight.Group
	current atomic.Pointer[entry]

	// mu orders closed against pending.Add so Close never misses a flight.
	mu      sync.Mutex
	closed  bool
	saveMu  sync.Mutex
	pending sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long a snapshot stays fresh.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFetchTimeout bounds each upstream fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithBackup enables the on-disk backup: it is rewritten after every
// successful fetch and read when a fetch fails with nothing in memory.
func WithBackup(b *catalog.Backup) Option {
	return func(c *Cache) {
		c.backup = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache over source. Nothing is fetched until the first Get.
func New(source catalog.Source, opts ...Option) *Cache {
	c := &Cache{
		source:       source,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("cache")
	return c
}

// Get returns the current snapshot, refreshing it first if it has expired.
// It fails only when the upstream fetch fails and neither an in-memory nor
// an on-disk snapshot is available, or when ctx ends while waiting.
func (c *Cache) Get(ctx context.Context) (*catalog.Snapshot, error) {
	if e := c.current.Load(); e != nil && c.now().Before(e.expires) {
		return e.snap, nil
	}
	return c.refresh(ctx, false)
}

// Refresh fetches a new snapshot regardless of expiry, joining a fetch that
// is already in flight.
func (c *Cache) Refresh(ctx context.Context) (*catalog.Snapshot, error) {
	return c.refresh(ctx, true)
}

// Peek returns the current snapshot without refreshing. It returns nil
// before the first successful load.
func (c *Cache) Peek() *catalog.Snapshot {
	if e := c.current.Load(); e != nil {
		return e.snap
	}
	return nil
}

// Expires returns when the current snapshot goes stale.
func (c *Cache) Expires() time.Time {
	if e := c.current.Load(); e != nil {
		return e.expires
	}
	return time.Time{}
}

// Close waits for in-flight fetches and the backup writes they start.
// Later Get and Refresh calls fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.pending.Wait()
}

func (c *Cache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// track registers a flight with Close. It reports false once the cache is
// closed.
func (c *Cache) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.pending.Add(1)
	return true
}

func (c *Cache) refresh(ctx context.Context, force bool) (*catalog.Snapshot, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	// The fetch outlives any single waiter, so it runs on a context that
	// keeps the first caller's values but not its cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.load(fetchCtx, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*catalog.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, force bool) (*catalog.Snapshot, error) {
	if !c.track() {
		return nil, ErrClosed
	}
	defer c.pending.Done()

	// A flight that finished just before this one started may already have
	// published a fresh snapshot.
	if e := c.current.Load(); !force && e != nil && c.now().Before(e.expires) {
		return e.snap, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := c.now()
	snap, err := c.source.Fetch(ctx)
	if err == nil {
		c.publish(snap)
		c.logger.Info("catalog refreshed", "packages", snap.Len(), "took", c.now().Sub(start))
		c.saveBackup(snap)
		return snap, nil
	}
	return c.fallback(err)
}

func (c *Cache) fallback(fetchErr error) (*catalog.Snapshot, error) {
	if e := c.current.Load(); e != nil {
		c.logger.Warn("catalog fetch failed, serving previous snapshot", "err", fetchErr, "fetched_at", e.snap.FetchedAt())
		c.publish(e.snap)
		return e.snap, nil
	}

	if c.backup != nil {
		snap, err := c.backup.Load()
		if err == nil {
			c.logger.Warn("catalog fetch failed, serving backup", "err", fetchErr, "path", c.backup.Path())
			c.publish(snap)
			return snap, nil
		}
		c.logger.Debug("catalog backup unavailable", "err", err)
	}

	c.logger.Error("catalog unavailable", "err", fetchErr)
	return nil, fetchErr
}

// publish installs snap as the current snapshot for another TTL.
func (c *Cache) publish(snap *catalog.Snapshot) {
	c.current.Store(&entry{snap: snap, expires: c.now().Add(c.ttl)})
}

// saveBackup writes the backup in the background without delaying the
// caller. Writes are serialized. It runs inside a tracked flight, so the
// pending count is already non-zero when it adds the writer.
func (c *Cache) saveBackup(snap *catalog.Snapshot) {
	if c.backup == nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.saveMu.Lock()
		defer c.saveMu.Unlock()
		if err := c.backup.Save(snap); err != nil {
			c.logger.Warn("writing catalog backup failed", "err", err)
		}
	}()
}
