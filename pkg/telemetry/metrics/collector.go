package metrics

import (
	"sync"
	"time"

	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every exported series (astra_decisions_total, ...).
const namespace = "astra"

// maxAnomalyTypes caps the number of distinct anomaly_type label values.
// Anomaly types arrive from telemetry classifiers and are not bounded by
// any schema, so past this limit new types are folded into "other".
const maxAnomalyTypes = 500

// Collector owns every Prometheus series the decision authority exports
// and provides typed recording methods for the components that feed them.
//
// All updates are cheap (a label lookup and an atomic add), so callers
// record synchronously on the decision path.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisions *DecisionMetrics
	missions  *MissionMetrics
	audit     *AuditMetrics
	server    *ServerMetrics

	anomalyTypes *CardinalityLimiter
}

// NewCollector creates a collector and registers all series with the given
// registry. A nil registry gets a fresh private one, which keeps tests
// isolated from the global default registry.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		config:       cfg,
		registry:     registry,
		decisions:    NewDecisionMetrics(registry),
		missions:     NewMissionMetrics(registry),
		audit:        NewAuditMetrics(registry),
		server:       NewServerMetrics(registry),
		anomalyTypes: NewCardinalityLimiter(maxAnomalyTypes),
	}
}

// RecordDecision records a completed policy evaluation: the decision
// counter, the anomaly counter, and the evaluation latency histogram.
func (c *Collector) RecordDecision(d policy.Decision, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	anomalyType := d.AnomalyType
	if !c.anomalyTypes.Allow(anomalyType) {
		anomalyType = "other"
	}

	c.decisions.RecordDecision(d.MissionPhase.String(), d.Escalation.String(), d.IsAllowed, duration)
	c.decisions.RecordAnomaly(d.Severity.String(), anomalyType)
}

// RecordEvaluationError records an evaluation that failed before producing
// a decision. The reason is a short static label ("invalid_input",
// "unknown_phase", "internal").
func (c *Collector) RecordEvaluationError(reason string) {
	if !c.config.Enabled {
		return
	}
	c.decisions.RecordError(reason)
}

// RecordVeto records a forbidden-action veto: the phase policy blocked the
// action a rule selected and the escalation was downgraded.
func (c *Collector) RecordVeto(phase mission.Phase, action policy.Action) {
	if !c.config.Enabled {
		return
	}
	c.decisions.RecordVeto(phase.String(), string(action))
}

// RecordPhaseTransition records a transition attempt. The result label is
// "applied" for accepted transitions and "rejected" for refused ones.
func (c *Collector) RecordPhaseTransition(from, to mission.Phase, result string) {
	if !c.config.Enabled {
		return
	}
	c.missions.RecordTransition(from.String(), to.String(), result)
}

// SetCurrentPhase updates the current-phase gauge set: 1 for the active
// phase, 0 for every other phase.
func (c *Collector) SetCurrentPhase(current mission.Phase) {
	if !c.config.Enabled {
		return
	}
	c.missions.SetCurrentPhase(current)
}

// SetAuditQueueDepth updates the audit recorder's buffered record count.
func (c *Collector) SetAuditQueueDepth(depth int) {
	if !c.config.Enabled {
		return
	}
	c.audit.SetQueueDepth(depth)
}

// RecordAuditWrite records the outcome of one audit storage write. The
// status label is "ok", "error", or "dropped".
func (c *Collector) RecordAuditWrite(status string) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordWrite(status)
}

// RecordHTTPRequest records a completed API request. The path should be
// the route pattern ("/v1/decisions"), never the raw URL, to keep label
// cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.server.RecordRequest(method, path, status, duration)
}

// Registry returns the Prometheus registry backing this collector, for
// mounting the scrape handler:
//
//	http.Handle(cfg.Path, collector.Handler())
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter bounds the number of unique values recorded for a
// label. Allow returns true while the value is already known or there is
// room for it; once the limit is reached unseen values are refused and the
// caller substitutes an aggregate label.
type CardinalityLimiter struct {
	limit   int
	current map[string]struct{}
	mu      sync.RWMutex
}

// NewCardinalityLimiter creates a limiter that admits at most limit
// distinct values.
func NewCardinalityLimiter(limit int) *CardinalityLimiter {
	return &CardinalityLimiter{
		limit:   limit,
		current: make(map[string]struct{}),
	}
}

// Allow reports whether the value may be used as a label.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.limit {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
