package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks the audit trail pipeline.
//
// Series:
//   - astra_audit_queue_depth: records buffered in the recorder
//   - astra_audit_writes_total: storage write outcomes by status
type AuditMetrics struct {
	queueDepth  prometheus.Gauge
	writesTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers the audit series.
func NewAuditMetrics(registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audit_queue_depth",
				Help:      "Audit records waiting in the recorder buffer",
			},
		),

		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_writes_total",
				Help:      "Audit storage write outcomes",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(am.queueDepth, am.writesTotal)

	return am
}

// SetQueueDepth updates the recorder buffer gauge.
func (am *AuditMetrics) SetQueueDepth(depth int) {
	am.queueDepth.Set(float64(depth))
}

// RecordWrite records a storage write outcome ("ok", "error", "dropped").
func (am *AuditMetrics) RecordWrite(status string) {
	am.writesTotal.WithLabelValues(status).Inc()
}
