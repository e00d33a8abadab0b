// Command trashcan walks through handing data between two "screens" of an
// application with the in-memory cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"trashcan/internal/cache"
	"trashcan/internal/metrics"
)

const namespace = "trashcan"

func main() {
	ttl := flag.Duration("ttl", getEnvDuration("TRASHCAN_TTL", 2*time.Second), "lifetime of the timed entry")
	sweep := flag.Duration("sweep", getEnvDuration("TRASHCAN_SWEEP", time.Second), "sweeper interval")
	metricsAddr := flag.String("metrics-addr", os.Getenv("TRASHCAN_METRICS_ADDR"), "serve /metrics on this address (empty disables)")
	flag.Parse()

	os.Exit(run(*ttl, *sweep, *metricsAddr))
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run(ttl, sweep time.Duration, metricsAddr string) int {
	// Signal-aware context is the root of ownership for long-lived background work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	c := cache.New(cache.Config{
		SweepInterval: sweep,
		Metrics:       metrics.NewPrometheus(reg, namespace),
		Logger:        log.Default(),
	})
	metrics.RegisterTierSizes(reg, namespace, c)

	if err := c.Start(ctx); err != nil {
		log.Printf("start sweeper: %v", err)
		return 1
	}
	defer func() {
		if err := c.Stop(); err != nil {
			log.Printf("cache stop: %v", err)
		}
	}()

	log.Println("trashcan demo starting")
	log.Printf("config: ttl=%s sweep=%s", ttl, sweep)

	g, ctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: router(reg)}
		g.Go(func() error {
			log.Printf("serving metrics on %s", metricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		err := demo(ctx, c, ttl, sweep)
		if metricsAddr != "" && err == nil {
			log.Println("demo done; metrics still served until Ctrl+C")
			return nil
		}
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("trashcan: %v", err)
		return 1
	}
	return 0
}

func demo(ctx context.Context, c *cache.Cache, ttl, sweep time.Duration) error {
	// -------------------------------------------------------------------
	// 1) Permanent hand-off: the first screen stores, the second consumes.
	// -------------------------------------------------------------------
	c.Put("test", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	if v, ok := cache.GetAs[[]int](c, "test", cache.Permanent); ok {
		log.Printf("GET test = %v (consumed)", v)
	}
	if _, ok := c.Get("test", cache.Permanent); !ok {
		log.Println("GET test: missing (already consumed)")
	}

	// -------------------------------------------------------------------
	// 2) Timed hand-off: readable without consuming until the TTL passes.
	// -------------------------------------------------------------------
	c.PutTTL("duration", "x", ttl)
	if v, ok := c.Lookup("duration", cache.Expiring, false); ok {
		log.Printf("PEEK duration = %q", v)
	}
	log.Printf("expiring keys: %v", c.Keys(cache.Expiring))

	// Wait long enough for expiry + at least one sweep.
	wait := time.NewTimer(ttl + sweep + sweep/2)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		log.Println("received shutdown signal")
		return ctx.Err()
	case <-wait.C:
	}

	log.Printf("expiring keys after sweep: %v", c.Keys(cache.Expiring))
	if r := c.Fetch("duration", cache.Expiring, true); !r.OK() {
		log.Printf("GET duration: %s", r.Status)
	}

	// -------------------------------------------------------------------
	// 3) Clear drops everything in both tiers.
	// -------------------------------------------------------------------
	c.Put("a", 1)
	c.PutTTL("b", 2, time.Hour)
	c.Clear()
	log.Printf("after clear: permanent=%d expiring=%d", c.Len(cache.Permanent), c.Len(cache.Expiring))

	fmt.Println("Done.")
	return nil
}

func router(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return r
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
