package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics holds Prometheus metrics for table, streaming and
// row-set operations
type EngineMetrics struct {
	// Table operation metrics
	TableCommitsTotal  *prometheus.CounterVec
	TableCommitErrors  *prometheus.CounterVec
	TableRowsWritten   prometheus.Counter
	TableRowsRead      prometheus.Counter
	CommitConflicts    prometheus.Counter
	OperationDuration  *prometheus.HistogramVec

	// Streaming metrics
	ActiveStreams      prometheus.Gauge
	StreamBatchesTotal *prometheus.CounterVec
	StreamRowsTotal    *prometheus.CounterVec

	// Row-set query metrics
	RowSetQueriesTotal *prometheus.CounterVec
}

var engineMetrics *EngineMetrics

// InitEngineMetrics initializes all engine Prometheus metrics
func InitEngineMetrics() {
	engineMetrics = &EngineMetrics{
		TableCommitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakehouse_table_commits_total",
				Help: "Total number of committed table operations",
			},
			[]string{"operation"},
		),
		TableCommitErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakehouse_table_commit_errors_total",
				Help: "Total number of failed table operations",
			},
			[]string{"operation"},
		),
		TableRowsWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lakehouse_table_rows_written_total",
				Help: "Total number of rows written to tables",
			},
		),
		TableRowsRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lakehouse_table_rows_read_total",
				Help: "Total number of rows read from tables",
			},
		),
		CommitConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lakehouse_commit_conflicts_total",
				Help: "Total number of transactions aborted by concurrent commits",
			},
		),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lakehouse_operation_duration_seconds",
				Help:    "Table operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lakehouse_active_streams",
				Help: "Number of streams currently running",
			},
		),
		StreamBatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakehouse_stream_batches_total",
				Help: "Total number of committed stream batches",
			},
			[]string{"stream"},
		),
		StreamRowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakehouse_stream_rows_total",
				Help: "Total number of rows delivered by streams",
			},
			[]string{"stream"},
		),
		RowSetQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakehouse_rowset_queries_total",
				Help: "Total number of row-set queries",
			},
			[]string{"format", "status"},
		),
	}
}

// GetEngineMetrics returns the metrics instance, initializing it on
// first use
func GetEngineMetrics() *EngineMetrics {
	if engineMetrics == nil {
		InitEngineMetrics()
	}
	return engineMetrics
}
