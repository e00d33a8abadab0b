package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultSweepInterval is how often the sweeper scans the expiring tier.
const DefaultSweepInterval = 10 * time.Second

// Config controls sweeping and instrumentation.
//
// The zero value is usable:
//   - SweepInterval <= 0 means DefaultSweepInterval
//   - nil Metrics records nothing
//   - nil Logger discards output
//   - nil Clock means time.Now
type Config struct {
	SweepInterval time.Duration
	Metrics       Metrics
	Logger        *log.Logger
	Clock         func() time.Time
}

// Cache is a two-tier, concurrency-safe key–value cache.
//
// Ownership model:
// Cache owns the sweeper goroutine once Start is called. Call Stop to end it.
type Cache struct {
	permanent *tier
	expiring  *tier

	seq atomic.Uint64

	sweepEvery time.Duration
	metrics    Metrics
	logger     *log.Logger
	now        func() time.Time

	loads singleflight.Group

	// Sweeper ownership.
	runMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
}

var (
	ErrRunning   = errors.New("cache: sweeper already running")
	ErrNilLoader = errors.New("cache: nil loader")
)

// New constructs an idle cache. The sweeper does not run until Start.
//
// New never returns a nil Cache.
func New(cfg Config) *Cache {
	c := &Cache{
		permanent:  newTier(),
		expiring:   newTier(),
		sweepEvery: cfg.SweepInterval,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
	if c.sweepEvery <= 0 {
		c.sweepEvery = DefaultSweepInterval
	}
	if c.metrics == nil {
		c.metrics = NoopMetrics{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cache, building it and starting its
// sweeper on first use. It is never stopped.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = New(Config{})
		_ = defaultCache.Start(context.Background())
	})
	return defaultCache
}

// Put stores value in the permanent tier.
func (c *Cache) Put(key string, value any) {
	c.store(key, value, -1)
}

// PutTTL stores value in the expiring tier for ttl.
//
// ttl semantics:
//   - ttl < 0 behaves like Put
//   - ttl == 0 is expired by the next read or sweep
func (c *Cache) PutTTL(key string, value any, ttl time.Duration) {
	c.store(key, value, ttl)
}

// PutFor is PutTTL with the lifetime given as duration units of unit.
// A negative duration stores permanently; overflow saturates.
func (c *Cache) PutFor(key string, value any, unit time.Duration, duration int64) {
	if duration < 0 {
		c.Put(key, value)
		return
	}
	ttl := time.Duration(math.MaxInt64)
	if unit <= 0 || duration <= int64(math.MaxInt64/unit) {
		ttl = unit * time.Duration(duration)
	}
	c.store(key, value, ttl)
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	now := c.now()
	e := &entry{
		value:    value,
		storedAt: now,
		seq:      c.seq.Add(1),
	}

	dst, other := c.expiring, c.permanent
	if ttl < 0 {
		e.permanent = true
		dst, other = c.permanent, c.expiring
	} else {
		e.expiresAt = now.Add(ttl)
	}

	dst.mu.Lock()
	dst.items[key] = e
	dst.mu.Unlock()

	// A key lives in one tier. Each put checks the other tier after its own
	// store, so whichever of two racing puts checks last sees the other's
	// entry: an older copy is dropped, a newer one means ours is stale.
	if other.removeOlder(key, e.seq) {
		dst.removeEntry(key, e)
	}
}

// Get reads key from tier and removes it.
func (c *Cache) Get(key string, tier Tier) (any, bool) {
	return c.Lookup(key, tier, true)
}

// Lookup reads key from tier, removing it when consume is set.
// Absent, expired and corrupted entries all report false.
func (c *Cache) Lookup(key string, tier Tier, consume bool) (any, bool) {
	r := c.Fetch(key, tier, consume)
	return r.Value, r.OK()
}

// Fetch reads key from tier and reports why a value was or was not returned.
func (c *Cache) Fetch(key string, tier Tier, consume bool) Result {
	return c.fetch(key, tier, consume, nil)
}

// fetch is the single read path. accept, when set, validates the stored
// value; a rejected value is treated as corrupt and evicted.
func (c *Cache) fetch(key string, tier Tier, consume bool, accept func(any) bool) Result {
	t := c.tierFor(tier)
	now := c.now()

	var r Result
	t.mu.Lock()
	e, ok := t.items[key]
	switch {
	case !ok:
		r.Status = Absent
	case e.expired(now):
		delete(t.items, key)
		r.Status = Expired
	case accept != nil && !accept(e.value):
		delete(t.items, key)
		r.Status = Corrupted
	default:
		r.Value, r.Status = e.value, Found
	}
	if consume {
		delete(t.items, key)
	}
	t.mu.Unlock()

	switch r.Status {
	case Found:
		c.metrics.Hit(tier)
	case Expired:
		c.metrics.Expired(ExpiredOnRead, 1)
		c.metrics.Miss(tier)
	case Corrupted:
		c.logger.Printf("cache: evicted corrupt %s entry %q", tier, key)
		c.metrics.Corrupted(tier)
		c.metrics.Miss(tier)
	default:
		c.metrics.Miss(tier)
	}
	return r
}

// Clear empties both tiers. The tiers are cleared one after the other.
func (c *Cache) Clear() {
	c.permanent.clear()
	c.expiring.clear()
}

// Len returns the number of stored entries in tier.
//
// Note: for the expiring tier Len includes entries that have expired but
// have not been read or swept yet.
func (c *Cache) Len(tier Tier) int {
	return c.tierFor(tier).len()
}

// Keys returns the keys of tier in sorted order.
//
// This is a debug helper used by the demo.
func (c *Cache) Keys(tier Tier) []string {
	t := c.tierFor(tier)
	t.mu.Lock()
	out := make([]string, 0, len(t.items))
	for k := range t.items {
		out = append(out, k)
	}
	t.mu.Unlock()

	slices.Sort(out)
	return out
}

func (c *Cache) tierFor(t Tier) *tier {
	if t == Permanent {
		return c.permanent
	}
	return c.expiring
}
