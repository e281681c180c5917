// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	TracksIngested  prometheus.Counter
	BatchesIngested prometheus.Counter
	IngestionErrors *prometheus.CounterVec
	HighestRunSeen  prometheus.Gauge
	FeedMessageLag  prometheus.Histogram

	// Pipeline metrics
	TracksProcessed     prometheus.Counter
	TracksWithoutTOF    prometheus.Counter
	SentinelRowsEmitted *prometheus.CounterVec
	SpeciesRowsEmitted  *prometheus.CounterVec
	BatchDuration       prometheus.Histogram
	EventTimeSource     *prometheus.CounterVec

	// Calibration metrics
	CalibrationRefreshes prometheus.Counter
	CalibrationFetches   *prometheus.CounterVec
	PassFallbacks        prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tof_pid_lab"
	}

	return &Metrics{
		TracksIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tracks_ingested_total",
			Help:      "Total number of tracks received from the feed",
		}),
		BatchesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batches_ingested_total",
			Help:      "Total number of track batches received",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),
		HighestRunSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_run_seen",
			Help:      "Highest run number seen on the feed",
		}),
		FeedMessageLag: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_message_lag_seconds",
			Help:      "Feed message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		TracksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tracks_processed_total",
			Help:      "Total number of tracks run through the pipeline",
		}),
		TracksWithoutTOF: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tracks_without_tof_total",
			Help:      "Total number of tracks without a usable timing signal",
		}),
		SentinelRowsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sentinel_rows_total",
			Help:      "Total number of sentinel rows emitted by channel",
		}, []string{"channel"}),
		SpeciesRowsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "species_rows_total",
			Help:      "Total number of species rows emitted",
		}, []string{"species"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Batch processing duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		EventTimeSource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "event_time_source_total",
			Help:      "Total number of per-track event times by source",
		}, []string{"source"}),

		CalibrationRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "refreshes_total",
			Help:      "Total number of run-boundary calibration refreshes",
		}),
		CalibrationFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "fetches_total",
			Help:      "Total number of calibration object fetches by status",
		}, []string{"status"}),
		PassFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "pass_fallbacks_total",
			Help:      "Total number of times the fallback pass was substituted",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of the last successfully processed batch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTrackProcessed increments the pipeline track counter.
func RecordTrackProcessed() {
	DefaultMetrics.TracksProcessed.Inc()
}

// RecordSentinelRow records a sentinel row on a channel.
func RecordSentinelRow(channel string) {
	DefaultMetrics.SentinelRowsEmitted.WithLabelValues(channel).Inc()
}

// RecordEventTimeSource records the source flags of a resolved event time.
func RecordEventTimeSource(source string) {
	DefaultMetrics.EventTimeSource.WithLabelValues(source).Inc()
}

// RecordIngestionError records an ingestion error by type.
func RecordIngestionError(errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(errorType).Inc()
}

// RecordDBQuery records a query duration, and the error if one occurred.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
