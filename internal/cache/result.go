package cache

import "github.com/samber/mo"

// Status tells why a lookup did or did not return a value.
type Status int

const (
	// Absent means the key is not stored in the tier.
	Absent Status = iota
	// Found means a value was returned.
	Found
	// Expired means the entry outlived its TTL and was removed.
	Expired
	// Corrupted means the stored value failed a typed read and was removed.
	Corrupted
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Expired:
		return "expired"
	case Corrupted:
		return "corrupted"
	default:
		return "absent"
	}
}

// Result is the outcome of Fetch.
type Result struct {
	Value  any
	Status Status
}

// OK reports whether a value was returned.
func (r Result) OK() bool { return r.Status == Found }

// FetchAs reads key as a V. A stored value of another type is evicted and
// reported as Corrupted.
func FetchAs[V any](c *Cache, key string, tier Tier, consume bool) (V, Status) {
	r := c.fetch(key, tier, consume, func(v any) bool {
		if v == nil {
			// A nil value fits any interface type.
			var zero V
			return any(zero) == nil
		}
		_, ok := v.(V)
		return ok
	})
	v, _ := r.Value.(V)
	return v, r.Status
}

// GetAs reads key as a V and removes it.
func GetAs[V any](c *Cache, key string, tier Tier) (V, bool) {
	v, s := FetchAs[V](c, key, tier, true)
	return v, s == Found
}

// LookupAs reads key as a V, removing it when consume is set.
func LookupAs[V any](c *Cache, key string, tier Tier, consume bool) mo.Option[V] {
	v, s := FetchAs[V](c, key, tier, consume)
	if s != Found {
		return mo.None[V]()
	}
	return mo.Some(v)
}
