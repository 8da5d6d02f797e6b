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
	ReadingsIngested *prometheus.CounterVec
	IngestErrors     *prometheus.CounterVec

	// Dataset metrics
	DatasetRuns      *prometheus.CounterVec
	DatasetDuration  *prometheus.HistogramVec
	PartitionRows    *prometheus.GaugeVec
	RowsDropped      *prometheus.CounterVec
	FeatureRowsSaved prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "energy_forecast_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ReadingsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "readings_ingested_total",
			Help:      "Total number of readings stored by kind",
		}, []string{"kind"}),
		IngestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by kind",
		}, []string{"kind"}),

		DatasetRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "runs_total",
			Help:      "Total number of dataset runs by variant and status",
		}, []string{"variant", "status"}),
		DatasetDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "duration_seconds",
			Help:      "Dataset build duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"variant"}),
		PartitionRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "partition_rows",
			Help:      "Complete rows in the last built partition",
		}, []string{"variant", "partition"}),
		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "rows_dropped_total",
			Help:      "Candidate rows removed by the completeness mask",
		}, []string{"variant", "partition"}),
		FeatureRowsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "feature_rows_saved_total",
			Help:      "Total number of feature rows persisted",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last READY dataset run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordIngested counts stored readings of a kind (meter, temperature).
func (m *Metrics) RecordIngested(kind string, n int) {
	m.ReadingsIngested.WithLabelValues(kind).Add(float64(n))
}

// RecordIngestError counts a failed ingestion batch.
func (m *Metrics) RecordIngestError(kind string) {
	m.IngestErrors.WithLabelValues(kind).Inc()
}

// RecordDatasetRun records the outcome of one dataset build.
func (m *Metrics) RecordDatasetRun(variant, status string, seconds float64, trainRows, testRows, trainDropped, testDropped int) {
	m.DatasetRuns.WithLabelValues(variant, status).Inc()
	m.DatasetDuration.WithLabelValues(variant).Observe(seconds)
	m.PartitionRows.WithLabelValues(variant, "train").Set(float64(trainRows))
	m.PartitionRows.WithLabelValues(variant, "test").Set(float64(testRows))
	m.RowsDropped.WithLabelValues(variant, "train").Add(float64(trainDropped))
	m.RowsDropped.WithLabelValues(variant, "test").Add(float64(testDropped))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
