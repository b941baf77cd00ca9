package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogue_cache_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogue_cache_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogue_cache_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogue_cache_db_rows_affected",
			Help:    "Number of rows affected by write operations",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	MigrationsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalogue_cache_migrations_applied_total",
			Help: "Total number of schema migrations applied",
		},
	)
)

// Cache content metrics
var (
	CachedItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_items",
			Help: "Number of catalogue items currently cached",
		},
	)

	CachedTagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_tags",
			Help: "Number of distinct tags across cached items",
		},
	)

	OfflineMediaTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogue_cache_offline_media",
			Help: "Number of offline media entries by encryption state",
		},
		[]string{"encrypted"}, // "yes" or "no"
	)

	CleanupItemsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalogue_cache_cleanup_items_removed_total",
			Help: "Total number of cache entries removed by TTL cleanup",
		},
	)

	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_cleanup_runs_total",
			Help: "Total number of TTL cleanup runs",
		},
		[]string{"status"},
	)
)

// Security metrics. SanitizerRejections doubles as the security-event sink
// counter: every sanitizer rejection increments it before the error returns
// to the caller.
var (
	SanitizerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_sanitizer_rejections_total",
			Help: "Total number of inputs rejected by the sanitizer",
		},
		[]string{"kind", "source"},
	)

	RangeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_range_requests_total",
			Help: "Total number of HTTP Range header resolutions",
		},
		[]string{"result"}, // "resolved", "rejected", "none"
	)
)

// Filesystem retry metrics for offline media on network mounts
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors encountered",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_cache_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)
