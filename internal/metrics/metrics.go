// Package metrics exposes Prometheus collectors for the detection and paper
// execution pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "polyarb"

var (
	// Cycle metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Detection cycles by result (ok, skipped, failed)",
		},
		[]string{"result"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full detection cycle",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "detector_duration_seconds",
			Help:      "Wall time of one detector run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"detector"},
	)

	DetectorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "detector_failures_total",
			Help:      "Detector runs that returned an error or panicked",
		},
		[]string{"detector"},
	)

	// Opportunity metrics
	OpportunitiesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opportunities",
			Name:      "detected_total",
			Help:      "Opportunities surviving merge and dedup",
		},
		[]string{"type"},
	)

	OpportunitiesNew = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opportunities",
			Name:      "new_total",
			Help:      "Opportunities reported as new or significantly changed",
		},
		[]string{"type"},
	)

	OpportunitiesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opportunities",
			Name:      "expired_total",
			Help:      "Tracked opportunities evicted after the TTL",
		},
	)

	TrackedOpportunities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "opportunities",
			Name:      "tracked",
			Help:      "Opportunities currently in the tracking map",
		},
	)

	// Risk and execution metrics
	RiskRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "rejections_total",
			Help:      "Failed admission checks by name",
		},
		[]string{"check"},
	)

	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Simulated executions by opportunity type and status",
		},
		[]string{"type", "status"},
	)

	RealizedProfit = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "realized_profit_dollars_total",
			Help:      "Sum of positive realized profit across simulated executions",
		},
	)

	RealizedLoss = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "realized_loss_dollars_total",
			Help:      "Sum of realized losses across simulated executions",
		},
	)

	Bankroll = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "bankroll_dollars",
			Help:      "Current simulated bankroll",
		},
	)

	// Inference metrics
	InferenceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "requests_total",
			Help:      "Text-inference requests by result (ok, invalid, error)",
		},
		[]string{"result"},
	)

	InferenceCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "cache_lookups_total",
			Help:      "Inference cache lookups by tier (local, shared) and result (hit, miss)",
		},
		[]string{"tier", "result"},
	)

	// API metrics
	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "API requests rejected by the per-client rate limit",
		},
	)
)

// RecordProfit splits a signed realized profit into the profit and loss
// counters.
func RecordProfit(v float64) {
	if v >= 0 {
		RealizedProfit.Add(v)
		return
	}
	RealizedLoss.Add(-v)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
