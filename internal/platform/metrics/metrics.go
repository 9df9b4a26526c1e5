package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cohort"

// Run outcome label values.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Recorder is the subset of metrics the service layer reports to. A nil
// Recorder is never passed around; use NewNoopRecorder instead.
type Recorder interface {
	RecordRun(mode, status string, term int, duration time.Duration)
	RecordCache(hits, entries int)
	RecordCapital(term int, duration time.Duration)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Collector holds the Prometheus metrics for projection runs, the
// recursion cache, nested capital and the HTTP surface.
type Collector struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runTerm         prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheEntries    prometheus.Counter
	capitalDuration prometheus.Histogram
	capitalTerm     prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates the metrics and registers them on registry. A nil
// registry gets a fresh one that also carries the Go runtime and process
// collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	termBuckets := []float64{1, 5, 10, 20, 40, 60, 120, 240, 600, 1200}

	c := &Collector{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "projection",
				Name:      "runs_total",
				Help:      "Total number of projection runs by evaluation mode and outcome",
			},
			[]string{"mode", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "projection",
				Name:      "run_duration_seconds",
				Help:      "Wall time of a projection run including valuation",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"mode"},
		),
		runTerm: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "projection",
				Name:      "term_periods",
				Help:      "Distribution of projected policy terms",
				Buckets:   termBuckets,
			},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "cache_hits_total",
				Help:      "Memoized state evaluations served from the engine cache",
			},
		),
		cacheEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "cache_entries_total",
				Help:      "State evaluations computed and stored by the engine",
			},
		),
		capitalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "capital",
				Name:      "duration_seconds",
				Help:      "Wall time of the nested capital calculation",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		capitalTerm: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "capital",
				Name:      "term_periods",
				Help:      "Terms of policies that went through the nested capital calculation",
				Buckets:   termBuckets,
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.runsTotal,
		c.runDuration,
		c.runTerm,
		c.cacheHits,
		c.cacheEntries,
		c.capitalDuration,
		c.capitalTerm,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// Registry returns the registry the collector's metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRun records one projection run. The duration and term are only
// observed for successful runs.
func (c *Collector) RecordRun(mode, status string, term int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	c.runsTotal.WithLabelValues(mode, status).Inc()
	if status != StatusSuccess {
		return
	}
	c.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
	c.runTerm.Observe(float64(term))
}

// RecordCache adds the cache statistics of one recursive run.
func (c *Collector) RecordCache(hits, entries int) {
	if hits > 0 {
		c.cacheHits.Add(float64(hits))
	}
	if entries > 0 {
		c.cacheEntries.Add(float64(entries))
	}
}

// RecordCapital records one nested capital calculation.
func (c *Collector) RecordCapital(term int, duration time.Duration) {
	c.capitalDuration.Observe(duration.Seconds())
	c.capitalTerm.Observe(float64(term))
}

// RecordHTTPRequest records one served HTTP request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus exposition endpoint for the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

type noopRecorder struct{}

// NewNoopRecorder returns a Recorder that discards everything. It is used
// when metrics are disabled and in tests that do not assert on metrics.
func NewNoopRecorder() Recorder {
	return noopRecorder{}
}

func (noopRecorder) RecordRun(string, string, int, time.Duration) {}
func (noopRecorder) RecordCache(int, int) {}
func (noopRecorder) RecordCapital(int, time.Duration) {}
func (noopRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
