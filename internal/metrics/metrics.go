// Package metrics provides Prometheus metrics for newsdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsdesk"

var (
	// BatchesTotal counts operations run against a batch, by outcome.
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batch operations",
		},
		[]string{"operation", "status"},
	)

	// BatchClusters observes how many clusters a clustering pass produced.
	BatchClusters = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_clusters",
			Help:      "Distribution of clusters produced per clustering pass",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// MergesTotal counts cluster merges by the signal that triggered them.
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Total number of cluster merges",
		},
		[]string{"reason"},
	)

	// DroppedIndicesTotal counts invalid article indices discarded from proposals.
	DroppedIndicesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_indices_total",
			Help:      "Total number of invalid article indices dropped from proposals",
		},
	)

	// OracleRequestsTotal counts oracle calls by operation and outcome.
	OracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Total number of oracle requests",
		},
		[]string{"operation", "status"},
	)

	// OracleRequestDuration measures oracle call latency including retries.
	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Duration of oracle requests in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// DuplicatesFlaggedTotal counts clusters flagged as already published.
	DuplicatesFlaggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_flagged_total",
			Help:      "Total number of clusters flagged as duplicates",
		},
	)

	// RulesLearnedTotal counts learned rules appended after force merges.
	RulesLearnedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_learned_total",
			Help:      "Total number of learned merge rules appended",
		},
	)
)

// RecordBatch records one batch operation.
func RecordBatch(operation, status string) {
	BatchesTotal.WithLabelValues(operation, status).Inc()
}

// RecordClusteringPass records the outcome of one clustering pass.
func RecordClusteringPass(clusters, dropped int) {
	BatchClusters.Observe(float64(clusters))
	if dropped > 0 {
		DroppedIndicesTotal.Add(float64(dropped))
	}
}

// RecordMerge records one greedy merge.
func RecordMerge(reason string) {
	MergesTotal.WithLabelValues(reason).Inc()
}

// RecordOracleRequest records one oracle call.
func RecordOracleRequest(operation, status string, duration float64) {
	OracleRequestsTotal.WithLabelValues(operation, status).Inc()
	OracleRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDuplicates records clusters flagged in one detection pass.
func RecordDuplicates(flagged int) {
	if flagged > 0 {
		DuplicatesFlaggedTotal.Add(float64(flagged))
	}
}

// RecordRuleLearned records one appended rule.
func RecordRuleLearned() {
	RulesLearnedTotal.Inc()
}
