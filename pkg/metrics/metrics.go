package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_tile_requests_total",
		Help: "Total number of tile requests",
	}, []string{"layer"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_tile_cache_hits_total",
		Help: "Total number of tile cache hits",
	}, []string{"layer"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_tile_cache_misses_total",
		Help: "Total number of tile cache misses",
	}, []string{"layer"})

	CacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcs_tile_cache_stores_total",
		Help: "Total number of tile store write operations",
	})

	CacheStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcs_tile_cache_store_errors_total",
		Help: "Total number of failed tile store writes",
	})

	InflightShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcs_tile_inflight_shared_total",
		Help: "Total number of requests served by another request's upstream fetch",
	})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_upstream_requests_total",
		Help: "Total number of upstream tile fetches",
	}, []string{"layer"})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_upstream_errors_total",
		Help: "Total number of failed upstream tile fetches",
	}, []string{"layer", "reason"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcs_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"layer"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gcs_upstream_circuit_breaker_state",
		Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	WarmupTiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_warmup_tiles_total",
		Help: "Total number of tiles processed by warmup",
	}, []string{"layer", "result"})

	MissionAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_mission_appends_total",
		Help: "Total number of mission append operations",
	}, []string{"result"})

	MissionCorruptSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcs_mission_corrupt_sessions_total",
		Help: "Total number of mission session files that failed to parse and were reset",
	})
)
