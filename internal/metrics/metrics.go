// Package metrics holds the Prometheus collectors for the scoring engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds every collector. All names carry the "veritas_" prefix.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Scoring
	RecomputesTotal      *prometheus.CounterVec
	RecomputeDuration    prometheus.Histogram
	RecomputeQueueDepth  prometheus.Gauge
	VersionConflicts     prometheus.Counter
	LevelChangesTotal    *prometheus.CounterVec
	EventsRecordedTotal  *prometheus.CounterVec
	EventsDuplicateTotal *prometheus.CounterVec

	// Contradictions
	ContradictionsDetected *prometheus.CounterVec
	ResolutionsTotal       *prometheus.CounterVec
	ProbesTotal            *prometheus.CounterVec

	// Batch jobs
	ConsensusClusters    prometheus.Gauge
	ConsensusRuns        prometheus.Counter
	CalibrationBrier     prometheus.Gauge
	WeightProposals      prometheus.Counter
	ActiveWeightsVersion prometheus.Gauge
}

// New registers the collectors once per process and returns them.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_http_requests_total",
					Help: "HTTP requests by route pattern, method and status class",
				},
				[]string{"route", "method", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "veritas_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route", "method"},
			),

			RecomputesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_recomputes_total",
					Help: "Score recomputations by outcome",
				},
				[]string{"result"}, // "ok", "error"
			),
			RecomputeDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "veritas_recompute_duration_seconds",
					Help:    "Time to recompute one confidence score",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
				},
			),
			RecomputeQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "veritas_recompute_queue_depth",
					Help: "Memories waiting for a recompute",
				},
			),
			VersionConflicts: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "veritas_score_version_conflicts_total",
					Help: "Optimistic score writes that lost to a concurrent writer",
				},
			),
			LevelChangesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_level_changes_total",
					Help: "Confidence level transitions by new level",
				},
				[]string{"level"},
			),
			EventsRecordedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_events_recorded_total",
					Help: "Accepted events by kind",
				},
				[]string{"kind"}, // "verification", "usage", "vote", "ingest"
			),
			EventsDuplicateTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_events_duplicate_total",
					Help: "Events ignored because their natural key already existed",
				},
				[]string{"kind"},
			),

			ContradictionsDetected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_contradictions_detected_total",
					Help: "Contradictions detected by type",
				},
				[]string{"type"},
			),
			ResolutionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_resolutions_total",
					Help: "Resolution attempts by strategy; unresolved attempts use strategy \"none\"",
				},
				[]string{"strategy"},
			),
			ProbesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritas_probes_total",
					Help: "Automated probes by result",
				},
				[]string{"result"}, // "holds", "fails", "timeout", "error"
			),

			ConsensusClusters: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "veritas_consensus_clusters",
					Help: "Clusters produced by the last consensus run",
				},
			),
			ConsensusRuns: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "veritas_consensus_runs_total",
					Help: "Completed consensus batch runs",
				},
			),
			CalibrationBrier: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "veritas_calibration_brier_score",
					Help: "Brier score of the last learning run",
				},
			),
			WeightProposals: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "veritas_weight_proposals_total",
					Help: "Weight versions proposed by the learning loop",
				},
			),
			ActiveWeightsVersion: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "veritas_active_weights_version",
					Help: "Version number of the active weight set",
				},
			),
		}
	})
	return globalMetrics
}
