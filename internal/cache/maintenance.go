package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Start launches the sweeper. The first pass runs one interval after Start.
// The sweeper ends when Stop is called or ctx is canceled.
func (c *Cache) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.group != nil {
		if c.alive() {
			return ErrRunning
		}
		// The loop already ended with its parent ctx; reap it.
		c.cancel()
		_ = c.group.Wait()
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return c.sweepLoop(ctx)
	})

	c.cancel, c.group, c.done = cancel, g, done
	c.logger.Printf("cache: sweeper started (every %s)", c.sweepEvery)
	return nil
}

// Stop ends the sweeper and waits for it to return.
//
// Stop is safe to call multiple times; a stopped cache can be started again.
func (c *Cache) Stop() error {
	c.runMu.Lock()
	cancel, g := c.cancel, c.group
	c.cancel, c.group, c.done = nil, nil, nil
	c.runMu.Unlock()

	if g == nil {
		return nil
	}

	// Cancel outside the lock so a concurrent Start doesn't wait on shutdown.
	cancel()
	err := g.Wait()
	c.logger.Printf("cache: sweeper stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Running reports whether the sweeper goroutine is alive. It turns false
// once Stop is called or the ctx given to Start is canceled.
func (c *Cache) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.alive()
}

// alive must be called with runMu held.
func (c *Cache) alive() bool {
	if c.group == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Cache) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep removes every expired entry from the expiring tier and returns how
// many were removed. The permanent tier is never touched.
//
// The scan is O(n) under the expiring tier's lock.
func (c *Cache) Sweep() int {
	start := time.Now()
	now := c.now()

	c.expiring.mu.Lock()
	if len(c.expiring.items) == 0 {
		c.expiring.mu.Unlock()
		return 0
	}
	removed := 0
	for key, e := range c.expiring.items {
		if e.expired(now) {
			delete(c.expiring.items, key)
			removed++
		}
	}
	c.expiring.mu.Unlock()

	took := time.Since(start)
	c.metrics.Swept(removed, took)
	if removed > 0 {
		c.metrics.Expired(ExpiredOnSweep, removed)
		c.logger.Printf("cache: swept %d expired entries in %s", removed, took)
	}
	return removed
}
