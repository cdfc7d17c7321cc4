// Package metrics collects and exposes Prometheus metrics for the
// catalog controller's fetch path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements catalogx.MetricsRecorder on Prometheus.
type Collector struct {
	registry     *prometheus.Registry
	fetchSuccess prometheus.Counter
	fetchFail    prometheus.Counter
	cacheHit     prometheus.Counter
	cacheMiss    prometheus.Counter
	enrichFail   prometheus.Counter
	fetchLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with the
// given registerer. Pass nil to get a private registry, exposed via
// Handler.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: reg,
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogx_fetch_success_total",
			Help: "Total successful catalog fetches.",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogx_fetch_fail_total",
			Help: "Total failed catalog fetches.",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogx_cache_hit_total",
			Help: "Total result cache hits.",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogx_cache_miss_total",
			Help: "Total result cache misses.",
		}),
		enrichFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogx_enrich_fail_total",
			Help: "Total failed availability enrichment calls.",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogx_fetch_latency_seconds",
			Help:    "Catalog fetch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.cacheHit,
		c.cacheMiss,
		c.enrichFail,
		c.fetchLatency,
	)

	return c
}

func (c *Collector) RecordFetchSuccess() { c.fetchSuccess.Inc() }

func (c *Collector) RecordFetchFailure() { c.fetchFail.Inc() }

func (c *Collector) RecordCacheHit() { c.cacheHit.Inc() }

func (c *Collector) RecordCacheMiss() { c.cacheMiss.Inc() }

func (c *Collector) RecordEnrichFailure() { c.enrichFail.Inc() }

// RecordFetchLatency records one fetch duration.
func (c *Collector) RecordFetchLatency(d time.Duration) {
	c.fetchLatency.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving the collector's registry in
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
