package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks the policy evaluation pipeline.
//
// Series:
//   - astra_decisions_total: decisions by phase, escalation, allowed
//   - astra_anomalies_detected_total: anomalies by severity and type
//   - astra_evaluation_duration_seconds: evaluation latency histogram
//   - astra_evaluation_errors_total: failed evaluations by reason
//   - astra_forbidden_action_vetoes_total: phase-policy vetoes
type DecisionMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	anomaliesTotal     *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	errorsTotal        *prometheus.CounterVec
	vetoesTotal        *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers the decision series.
func NewDecisionMetrics(registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total escalation decisions issued",
			},
			[]string{"phase", "escalation", "allowed"},
		),

		anomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_detected_total",
				Help:      "Total anomaly events evaluated",
			},
			[]string{"severity", "anomaly_type"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Policy evaluation latency in seconds",
				// Evaluation is an in-memory table walk; 1us to 16ms.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluation_errors_total",
				Help:      "Evaluations that failed before producing a decision",
			},
			[]string{"reason"},
		),

		vetoesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forbidden_action_vetoes_total",
				Help:      "Decisions downgraded because the phase forbids the selected action",
			},
			[]string{"phase", "action"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.anomaliesTotal,
		dm.evaluationDuration,
		dm.errorsTotal,
		dm.vetoesTotal,
	)

	return dm
}

// RecordDecision records one issued decision and its evaluation latency.
func (dm *DecisionMetrics) RecordDecision(phase, escalation string, allowed bool, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(phase, escalation, strconv.FormatBool(allowed)).Inc()
	dm.evaluationDuration.Observe(duration.Seconds())
}

// RecordAnomaly records one classified anomaly event.
func (dm *DecisionMetrics) RecordAnomaly(severity, anomalyType string) {
	dm.anomaliesTotal.WithLabelValues(severity, anomalyType).Inc()
}

// RecordError records an evaluation failure.
func (dm *DecisionMetrics) RecordError(reason string) {
	dm.errorsTotal.WithLabelValues(reason).Inc()
}

// RecordVeto records a forbidden-action downgrade.
func (dm *DecisionMetrics) RecordVeto(phase, action string) {
	dm.vetoesTotal.WithLabelValues(phase, action).Inc()
}
