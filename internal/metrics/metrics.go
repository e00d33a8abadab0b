// Package metrics exports cache events to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trashcan/internal/cache"
)

// Prometheus implements cache.Metrics.
type Prometheus struct {
	Hits        *prometheus.CounterVec
	Misses      *prometheus.CounterVec
	Corruptions *prometheus.CounterVec
	Expirations *prometheus.CounterVec

	Sweeps        prometheus.Counter
	SweepDuration prometheus.Histogram
}

var _ cache.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the cache collectors on reg under namespace.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Lookups that returned a value, by tier",
		}, []string{"tier"}),
		Misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Lookups that returned nothing, by tier",
		}, []string{"tier"}),
		Corruptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_evictions_total",
			Help:      "Entries evicted because a typed read failed, by tier",
		}, []string{"tier"}),
		Expirations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_total",
			Help:      "Expired entries removed, by cause (lazy or sweep)",
		}, []string{"cause"}),

		Sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Sweeper passes over the expiring tier",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent scanning the expiring tier",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		}),
	}
}

func (p *Prometheus) Hit(t cache.Tier)  { p.Hits.WithLabelValues(t.String()).Inc() }
func (p *Prometheus) Miss(t cache.Tier) { p.Misses.WithLabelValues(t.String()).Inc() }

func (p *Prometheus) Corrupted(t cache.Tier) {
	p.Corruptions.WithLabelValues(t.String()).Inc()
}

func (p *Prometheus) Expired(cause cache.ExpireCause, n int) {
	p.Expirations.WithLabelValues(string(cause)).Add(float64(n))
}

func (p *Prometheus) Swept(_ int, took time.Duration) {
	p.Sweeps.Inc()
	p.SweepDuration.Observe(took.Seconds())
}

// RegisterTierSizes exports the entry count of each tier of c as a gauge.
func RegisterTierSizes(reg prometheus.Registerer, namespace string, c *cache.Cache) {
	f := promauto.With(reg)
	for _, t := range []cache.Tier{cache.Permanent, cache.Expiring} {
		t := t
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "entries",
			Help:        "Entries currently stored, by tier",
			ConstLabels: prometheus.Labels{"tier": t.String()},
		}, func() float64 { return float64(c.Len(t)) })
	}
}
