package cache

import (
	"sync"
	"time"
)

// Tier selects one of the two storage partitions.
type Tier int

const (
	// Permanent entries never expire.
	Permanent Tier = iota
	// Expiring entries carry a TTL.
	Expiring
)

func (t Tier) String() string {
	switch t {
	case Permanent:
		return "permanent"
	case Expiring:
		return "expiring"
	default:
		return "unknown"
	}
}

// entry is immutable once stored. Re-inserting a key replaces the pointer.
//
// seq orders inserts across both tiers so a cross-tier put only removes
// entries older than itself.
type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
	permanent bool
	seq       uint64
}

func (e *entry) expired(now time.Time) bool {
	return !e.permanent && !now.Before(e.expiresAt)
}

// tier is one partition with its own lock.
type tier struct {
	mu    sync.Mutex
	items map[string]*entry
}

func newTier() *tier {
	return &tier{items: make(map[string]*entry)}
}

// removeOlder deletes key if its entry was inserted before seq. It reports
// whether the tier holds a newer entry for key instead.
func (t *tier) removeOlder(key string, seq uint64) (newer bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.items[key]
	switch {
	case !ok:
		return false
	case e.seq < seq:
		delete(t.items, key)
		return false
	default:
		return e.seq > seq
	}
}

// removeEntry deletes key only while it still maps to e.
func (t *tier) removeEntry(key string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.items[key] == e {
		delete(t.items, key)
	}
}

func (t *tier) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.items)
}

func (t *tier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}
