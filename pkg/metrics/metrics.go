// Package metrics provides Prometheus-backed observability for the
// extraction engine. Every component emits structured counters here instead
// of mutating global progress state, so an external collector can tell
// "legitimately zero rows" apart from "queries failed".
//
// # Basic Usage
//
//	// Rows landed for a table
//	metrics.RowsExtracted.WithLabelValues("sales.orders").Add(float64(n))
//
//	// A single partition-key query failed and was recovered
//	metrics.KeyFailures.WithLabelValues("sales.orders").Inc()
//
//	// Track extraction latency
//	timer := prometheus.NewTimer(metrics.ExtractionDuration.WithLabelValues("sales.orders"))
//	defer timer.ObserveDuration()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsExtracted counts rows landed per table.
	RowsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_rows_extracted_total",
			Help: "Total number of rows extracted, labeled by table",
		},
		[]string{"table"},
	)

	// KeyFailures counts partition-key queries that failed and were
	// recovered as zero rows.
	KeyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_key_failures_total",
			Help: "Total number of per-key query failures, labeled by table",
		},
		[]string{"table"},
	)

	// ShardFailures counts shards lost to connection failures at worker
	// start-up. A nonzero value flags a partial result.
	ShardFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_shard_failures_total",
			Help: "Total number of shards abandoned because their worker could not connect, labeled by table",
		},
		[]string{"table"},
	)

	// JobsCompleted counts finished jobs by outcome (clean or partial).
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_jobs_completed_total",
			Help: "Total number of completed extraction jobs, labeled by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveWorkers tracks the number of shard workers currently holding
	// a connection.
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quarry_active_workers",
			Help: "Number of shard workers currently running",
		},
	)

	// ExtractionDuration observes wall-clock time per table extraction.
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quarry_extraction_duration_seconds",
			Help:    "Wall-clock duration of table extractions, labeled by table",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"table"},
	)
)
