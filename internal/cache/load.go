package cache

import (
	"context"
	"fmt"
	"time"
)

// LoadFunc produces the value for a missing key.
type LoadFunc func(ctx context.Context, key string) (any, error)

// GetOrLoad returns the value under key, calling load on a miss and storing
// the result with PutTTL(key, v, ttl). The read does not consume the entry.
//
// Concurrent misses for the same key and tier share one load call, run with
// the ctx of the caller that started it. Load errors are returned wrapped
// and nothing is stored.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoadFunc) (any, error) {
	if load == nil {
		return nil, ErrNilLoader
	}

	tier := Expiring
	if ttl < 0 {
		tier = Permanent
	}
	if v, ok := c.Lookup(key, tier, false); ok {
		return v, nil
	}

	v, err, _ := c.loads.Do(tier.String()+"\x00"+key, func() (any, error) {
		// Another caller may have finished loading while we waited.
		if v, ok := c.Lookup(key, tier, false); ok {
			return v, nil
		}
		v, err := load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache: load %q: %w", key, err)
		}
		c.PutTTL(key, v, ttl)
		return v, nil
	})
	return v, err
}
