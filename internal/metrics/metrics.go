// Package metrics exports toast activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "pulse_toast").
	Namespace string
	// Registry receives the metrics (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
	// Buckets are the lifetime histogram buckets in seconds.
	Buckets []float64
	// Now is the time source for lifetimes (default: time.Now).
	Now func() time.Time
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// WithBuckets sets the lifetime histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithClock sets the time source used to measure lifetimes.
func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

func defaultConfig() Config {
	return Config{
		Namespace: "pulse_toast",
		Registry:  prometheus.DefaultRegisterer,
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 300},
		Now:       time.Now,
	}
}

// Collector counts toasts as they come and go. It implements toast.Observer.
type Collector struct {
	now      func() time.Time
	created  *prometheus.CounterVec
	removed  *prometheus.CounterVec
	live     prometheus.Gauge
	lifetime *prometheus.HistogramVec
}

// New registers the toast metrics and returns the collector.
// It panics if the metrics are already registered in the registry.
func New(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		now: cfg.Now,
		created: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "toasts_created_total",
			Help:      "Total number of toasts created",
		}, []string{"kind"}),
		removed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "toasts_removed_total",
			Help:      "Total number of toasts removed, by cause",
		}, []string{"kind", "cause"}),
		live: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "toasts_live",
			Help:      "Number of toasts currently live",
		}),
		lifetime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "toast_lifetime_seconds",
			Help:      "Time from creation to removal",
			Buckets:   cfg.Buckets,
		}, []string{"cause"}),
	}
}

// ToastAdded implements toast.Observer.
func (c *Collector) ToastAdded(t toast.Toast) {
	c.created.WithLabelValues(t.Kind.String()).Inc()
	c.live.Inc()
}

// ToastRemoved implements toast.Observer.
func (c *Collector) ToastRemoved(t toast.Toast, cause toast.Cause) {
	c.removed.WithLabelValues(t.Kind.String(), cause.String()).Inc()
	c.live.Dec()
	if !t.CreatedAt.IsZero() {
		c.lifetime.WithLabelValues(cause.String()).Observe(c.now().Sub(t.CreatedAt).Seconds())
	}
}
