package cache

import "time"

// ExpireCause tells how an expired entry was found.
type ExpireCause string

const (
	ExpiredOnRead  ExpireCause = "lazy"
	ExpiredOnSweep ExpireCause = "sweep"
)

// Metrics receives cache events. Implementations must be safe for
// concurrent use; they are called outside tier locks.
type Metrics interface {
	// Hit is called when a lookup returns a value.
	Hit(Tier)

	// Miss is called when a lookup returns nothing, whatever the reason.
	Miss(Tier)

	// Expired is called when n expired entries are removed.
	Expired(cause ExpireCause, n int)

	// Corrupted is called when a stored value fails a typed read.
	Corrupted(Tier)

	// Swept is called after every sweep of a non-empty expiring tier.
	Swept(removed int, took time.Duration)
}

// NoopMetrics ignores all events.
type NoopMetrics struct{}

func (NoopMetrics) Hit(Tier)                 {}
func (NoopMetrics) Miss(Tier)                {}
func (NoopMetrics) Expired(ExpireCause, int) {}
func (NoopMetrics) Corrupted(Tier)           {}
func (NoopMetrics) Swept(int, time.Duration) {}
