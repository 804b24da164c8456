package metrics

import (
	"astraguard/aegis/pkg/mission"

	"github.com/prometheus/client_golang/prometheus"
)

// MissionMetrics tracks the phase state machine.
//
// Series:
//   - astra_phase_transitions_total: transition attempts by from, to, result
//   - astra_mission_current_phase: 1 for the active phase, 0 otherwise
type MissionMetrics struct {
	transitionsTotal *prometheus.CounterVec
	currentPhase     *prometheus.GaugeVec
}

// NewMissionMetrics creates and registers the mission series.
func NewMissionMetrics(registry *prometheus.Registry) *MissionMetrics {
	mm := &MissionMetrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phase_transitions_total",
				Help:      "Phase transition attempts",
			},
			[]string{"from", "to", "result"},
		),

		currentPhase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mission_current_phase",
				Help:      "Active mission phase (1 for the current phase, 0 for all others)",
			},
			[]string{"phase"},
		),
	}

	registry.MustRegister(mm.transitionsTotal, mm.currentPhase)

	return mm
}

// RecordTransition records one transition attempt. The result is "applied"
// or "rejected".
func (mm *MissionMetrics) RecordTransition(from, to, result string) {
	mm.transitionsTotal.WithLabelValues(from, to, result).Inc()
}

// SetCurrentPhase marks the active phase across the gauge set, so a scrape
// always sees exactly one phase at 1.
func (mm *MissionMetrics) SetCurrentPhase(current mission.Phase) {
	for _, phase := range mission.Phases() {
		value := 0.0
		if phase == current {
			value = 1.0
		}
		mm.currentPhase.WithLabelValues(phase.String()).Set(value)
	}
}
