// Package metrics exposes pool and HTTP metrics in Prometheus format.
//
// The Collector owns a private registry so tests and multiple servers in
// one process never collide on the global default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric naming and exposure.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// DefaultConfig enables /metrics under the "deckbuilder" namespace.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Namespace: "deckbuilder", Path: "/metrics"}
}

// Request duration buckets, 5ms to 10s.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// unmatchedRoute labels requests no route matched, so arbitrary paths
// cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// Collector records HTTP traffic and publishes pool statistics.
type Collector struct {
	cfg      *Config
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewCollector creates the HTTP metrics and registers them, along with Go
// runtime and process collectors, on registry (a fresh one if nil).
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "deckbuilder"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		cfg:      cfg,
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"method", "route"},
		),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		}),
	}

	registry.MustRegister(
		c.requests,
		c.duration,
		c.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Path is where the exposition endpoint is mounted.
func (c *Collector) Path() string {
	return c.cfg.Path
}

// StatSource is anything reporting pool statistics; *database.Pool does.
type StatSource interface {
	Stat() database.Stat
}

// RegisterPool publishes pool gauges and counters read from src at scrape
// time. The pool is never touched between scrapes.
func (c *Collector) RegisterPool(src StatSource) {
	ns := c.cfg.Namespace
	gauge := func(name, help string, f func(database.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: ns, Subsystem: "pool", Name: name, Help: help},
			func() float64 { return f(src.Stat()) },
		)
	}
	counter := func(name, help string, f func(database.Stat) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: ns, Subsystem: "pool", Name: name, Help: help},
			func() float64 { return f(src.Stat()) },
		)
	}

	c.registry.MustRegister(
		gauge("connections", "Open connections, leased plus idle", func(s database.Stat) float64 { return float64(s.Total) }),
		gauge("idle_connections", "Idle connections", func(s database.Stat) float64 { return float64(s.Idle) }),
		gauge("leased_connections", "Connections currently leased to requests", func(s database.Stat) float64 { return float64(s.Leased) }),
		gauge("max_connections", "Configured maximum pool size", func(s database.Stat) float64 { return float64(s.MaxSize) }),
		counter("acquires_total", "Successful connection acquisitions", func(s database.Stat) float64 { return float64(s.AcquireCount) }),
		counter("acquire_waits_total", "Acquisitions that had to wait or open a connection", func(s database.Stat) float64 { return float64(s.EmptyAcquireCount) }),
		counter("acquire_seconds_total", "Cumulative time spent acquiring connections", func(s database.Stat) float64 { return s.AcquireDuration.Seconds() }),
		counter("acquire_timeouts_total", "Acquisitions that gave up after the connection timeout", func(s database.Stat) float64 { return float64(s.Timeouts) }),
		counter("recycled_total", "Idle connections closed by the maintenance sweep", func(s database.Stat) float64 { return float64(s.Recycled) }),
		counter("discarded_total", "Broken connections discarded on release", func(s database.Stat) float64 { return float64(s.Discarded) }),
	)
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = unmatchedRoute
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Middleware records every request passing through it. It must run inside
// a chi router so the matched route pattern is available as a label.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.inflight.Inc()
		defer c.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		c.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

// Handler returns the HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
