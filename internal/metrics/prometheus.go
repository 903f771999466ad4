package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfb_api_calls_total",
			Help: "Total number of Sleeper API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfb_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// Snapshot replace metrics
	ReplacesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfb_snapshot_replaces_total",
			Help: "Total number of snapshot replace transactions",
		},
		[]string{"table", "status"},
	)

	ReplaceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfb_snapshot_replace_duration_seconds",
			Help:    "Duration of snapshot replace transactions in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"table"},
	)

	RowsReplaced = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bfb_snapshot_rows",
			Help: "Number of rows written by the last successful replace",
		},
		[]string{"table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bfb_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bfb_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bfb_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bfb_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfb_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Pipeline metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfb_sync_operations_total",
			Help: "Total number of pipeline steps by outcome",
		},
		[]string{"step", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bfb_sync_duration_seconds",
			Help:    "Duration of pipeline steps in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"step"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bfb_last_successful_sync_timestamp",
			Help: "Timestamp of last successful pipeline run",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bfb_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bfb_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordReplace records a snapshot replace transaction
func RecordReplace(table, status string, rows int64, duration float64) {
	ReplacesTotal.WithLabelValues(table, status).Inc()
	ReplaceDuration.WithLabelValues(table).Observe(duration)

	if status == "success" {
		RowsReplaced.WithLabelValues(table).Set(float64(rows))
	}
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSync records a pipeline step
func RecordSync(step, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(step, status).Inc()
	SyncDuration.WithLabelValues(step).Observe(duration)
}

// RecordPipelineSuccess marks a fully successful pipeline run
func RecordPipelineSuccess() {
	LastSuccessfulSync.SetToCurrentTime()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
