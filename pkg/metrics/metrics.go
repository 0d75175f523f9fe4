// Package metrics holds the Prometheus collectors shared by the analyzer
// components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const namespace = "covid_analyzer"

// Collectors groups the application collectors. A nil *Collectors is valid
// and records nothing.
type Collectors struct {
	// CacheRequests counts dataset cache lookups by result (hit, miss).
	CacheRequests *prometheus.CounterVec
	// DatasetLoads counts dataset loads by source kind and result (success, error).
	DatasetLoads *prometheus.CounterVec
	// LoadDuration observes how long dataset loads take.
	LoadDuration prometheus.Histogram
	// DroppedRecords counts malformed payload elements by rejected field.
	DroppedRecords *prometheus.CounterVec
	// RateLimitDecisions counts limiter decisions by outcome (allowed, denied).
	RateLimitDecisions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors, which is what tests want.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)

	return &Collectors{
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Dataset cache lookups by result",
		}, []string{"result"}),
		DatasetLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by source kind and result",
		}, []string{"kind", "result"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Time spent fetching and normalizing a dataset",
			Buckets:   DefaultBuckets,
		}),
		DroppedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Malformed payload elements skipped by the normalizer",
		}, []string{"field"}),
		RateLimitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by outcome",
		}, []string{"decision"}),
	}
}

// CacheResult records a cache lookup.
func (c *Collectors) CacheResult(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheRequests.WithLabelValues(result).Inc()
}

// DatasetLoad records a finished dataset load.
func (c *Collectors) DatasetLoad(kind string, seconds float64, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.DatasetLoads.WithLabelValues(kind, result).Inc()
	c.LoadDuration.Observe(seconds)
}

// Dropped records rejected payload elements grouped by field.
func (c *Collectors) Dropped(reasons map[string]int) {
	if c == nil {
		return
	}
	for field, n := range reasons {
		c.DroppedRecords.WithLabelValues(field).Add(float64(n))
	}
}

// RateLimit records a limiter decision.
func (c *Collectors) RateLimit(allowed bool) {
	if c == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	c.RateLimitDecisions.WithLabelValues(decision).Inc()
}
