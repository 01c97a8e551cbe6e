// Package metrics defines the Prometheus instrumentation shared by the
// write pipeline and the query path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylake_records_written_total",
		Help: "Total number of event records written to partition files.",
	})

	FilesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylake_files_written_total",
		Help: "Total number of partition files written.",
	})

	QueriesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylake_queries_total",
		Help: "Total number of revenue-by-plan queries executed.",
	})

	QueryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylake_query_errors_total",
		Help: "Total number of queries that failed with an internal error.",
	})

	FilesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylake_files_skipped_total",
		Help: "Total number of partition files skipped as unreadable during aggregation.",
	})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paylake_query_duration_ms",
		Help:    "End-to-end query latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
)
