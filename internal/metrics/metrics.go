package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache Metrics
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_cache_requests_total",
			Help: "Cache lookups by backend and result",
		},
		[]string{"backend", "result"}, // result: hit, miss, error
	)

	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_cache_writes_total",
			Help: "Cache writes by backend and result",
		},
		[]string{"backend", "result"}, // result: ok, error
	)

	// Upstream (TMDB) Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_upstream_requests_total",
			Help: "Upstream catalog requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_discovery_upstream_request_duration_seconds",
			Help:    "Upstream catalog request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_upstream_retries_total",
			Help: "Upstream catalog retry attempts",
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movie_discovery_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Synchronization Metrics
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_reconciliations_total",
			Help: "Catalog item upserts by result",
		},
		[]string{"result"}, // created, updated, failed
	)

	SyncOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_sync_operations_total",
			Help: "Synchronization operations by operation and source",
		},
		[]string{"operation", "source"}, // source: cache, upstream, unavailable
	)

	// HTTP Metrics
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_discovery_rate_limit_rejections_total",
			Help: "Inbound requests rejected by the per-IP rate limiter",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
