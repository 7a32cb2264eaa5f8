// Package metrics provides Prometheus metrics for the vinyl tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinyl_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_http_rate_limited_total",
			Help: "Requests rejected by the write rate limiter",
		},
		[]string{"path"},
	)

	// Aggregation Metrics
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinyl_aggregation_duration_seconds",
			Help:    "Time taken to fetch and aggregate price data",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"}, // "group", "timeseries"
	)

	AggregationRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vinyl_aggregation_result_rows",
			Help:    "Number of rows or points returned by an aggregation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	AggregationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_aggregation_errors_total",
			Help: "Aggregation failures by operation and kind",
		},
		[]string{"operation", "kind"}, // kind: "invalid", "empty", "store"
	)

	// Selection Metrics
	SelectionResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_selection_resolutions_total",
			Help: "Card selection resolutions by outcome",
		},
		[]string{"outcome"}, // "selected", "none"
	)

	// Ingest Metrics
	ObservationsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinyl_observations_ingested_total",
			Help: "Total number of marketplace observations stored",
		},
	)

	ReleasesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinyl_releases_ingested_total",
			Help: "Total number of release bundles processed",
		},
	)

	MetadataWriteWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_metadata_write_warnings_total",
			Help: "Metadata writes that failed and were skipped",
		},
		[]string{"table"},
	)

	// Import Worker Metrics
	ImportFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinyl_import_files_total",
			Help: "Inbox files processed by result",
		},
		[]string{"result"}, // "success", "failed"
	)

	ImportFilesToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vinyl_import_files_today",
			Help: "Inbox files imported today (resets at midnight)",
		},
	)

	ImportBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vinyl_import_batch_duration_seconds",
			Help:    "Time taken to process an inbox scan",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Catalog Metrics
	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinyl_catalog_cache_hits_total",
			Help: "Catalog option cache hit count",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinyl_catalog_cache_misses_total",
			Help: "Catalog option cache miss count",
		},
	)

	MissingReleases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vinyl_missing_releases",
			Help: "Releases with observations but no metadata at last check",
		},
	)
)
