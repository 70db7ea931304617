package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpstreamRequestsTotal counts dispatched market data requests by kind and outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_upstream_requests_total",
			Help: "Number of market data requests dispatched upstream, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// UpstreamRequestDuration observes the wall time of dispatched upstream requests.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_upstream_request_duration_seconds",
			Help:    "Duration of dispatched market data requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// SchedulerQueueDepth tracks the number of requests waiting in the dispatch queue.
	SchedulerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portfolio_scheduler_queue_depth",
			Help: "Number of market data requests currently queued for dispatch.",
		},
	)

	// PriceCacheHitsTotal counts spot price lookups served from the freshness cache.
	PriceCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_price_cache_hits_total",
			Help: "Number of spot price lookups answered from the cache within the freshness window.",
		},
	)

	// PriceCacheMissesTotal counts spot price lookups that required an upstream fetch.
	PriceCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_price_cache_misses_total",
			Help: "Number of spot price lookups that fell through to an upstream fetch.",
		},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
// Call once at startup, before the first request is served.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		SchedulerQueueDepth,
		PriceCacheHitsTotal,
		PriceCacheMissesTotal,
	)
}
