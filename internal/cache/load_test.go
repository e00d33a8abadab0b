package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrLoadCachesValue(t *testing.T) {
	c, _ := newTestCache(t)

	var calls atomic.Int32
	load := func(ctx context.Context, key string) (any, error) {
		calls.Add(1)
		return "v:" + key, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), "a", time.Minute, load)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if v != "v:a" {
			t.Fatalf("got %v", v)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("loader called %d times, want 1", calls.Load())
	}
	if c.Len(Expiring) != 1 {
		t.Fatalf("expected loaded value in the expiring tier")
	}
}

func TestGetOrLoadPermanent(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.GetOrLoad(context.Background(), "p", -1, func(context.Context, string) (any, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len(Permanent) != 1 {
		t.Fatalf("expected loaded value in the permanent tier")
	}
}

func TestGetOrLoadReloadsAfterExpiry(t *testing.T) {
	c, clk := newTestCache(t)

	var calls atomic.Int32
	load := func(context.Context, string) (any, error) {
		return calls.Add(1), nil
	}

	c.GetOrLoad(context.Background(), "k", time.Second, load)
	clk.Advance(time.Second)
	v, err := c.GetOrLoad(context.Background(), "k", time.Second, load)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v != int32(2) {
		t.Fatalf("got %v, want reloaded value 2", v)
	}
}

func TestGetOrLoadError(t *testing.T) {
	c, _ := newTestCache(t)

	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context, string) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}
	if c.Len(Expiring) != 0 {
		t.Fatalf("failed load must not be stored")
	}

	if _, err := c.GetOrLoad(context.Background(), "k", time.Minute, nil); !errors.Is(err, ErrNilLoader) {
		t.Fatalf("got %v, want ErrNilLoader", err)
	}
}

func TestGetOrLoadCoalesces(t *testing.T) {
	c, _ := newTestCache(t)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context, string) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrLoad(context.Background(), "k", time.Minute, load); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}

	// Give the goroutines time to pile up on the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("loader called %d times, want 1", calls.Load())
	}
}

func TestGetOrLoadSeparatesTiers(t *testing.T) {
	c, _ := newTestCache(t)

	entered := make(chan Tier, 2)
	release := make(chan struct{})
	loadFor := func(tier Tier) LoadFunc {
		return func(context.Context, string) (any, error) {
			entered <- tier
			<-release
			return tier.String(), nil
		}
	}

	results := make(chan any, 2)
	for _, ttl := range []time.Duration{-1, time.Minute} {
		ttl := ttl
		tier := Expiring
		if ttl < 0 {
			tier = Permanent
		}
		go func() {
			v, err := c.GetOrLoad(context.Background(), "k", ttl, loadFor(tier))
			if err != nil {
				t.Errorf("load: %v", err)
			}
			results <- v
		}()
	}

	// Both loaders must start: the permanent and the expiring miss are
	// separate flights.
	seen := map[Tier]bool{}
	for i := 0; i < 2; i++ {
		select {
		case tier := <-entered:
			seen[tier] = true
		case <-time.After(time.Second):
			t.Fatalf("only %d loader(s) started, want 2", i)
		}
	}
	close(release)

	got := map[any]bool{<-results: true, <-results: true}
	if !seen[Permanent] || !seen[Expiring] || !got["permanent"] || !got["expiring"] {
		t.Fatalf("loaders=%v results=%v, want one per tier", seen, got)
	}
}
