package policy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"astraguard/aegis/pkg/mission"
)

// PersistenceRule escalates repeated high-severity anomalies. When an event
// at HIGH severity or above carries a recurrence count at or beyond the
// threshold, the decision escalates to the configured level instead of the
// phase base mapping.
type PersistenceRule struct {
	// RecurrenceThreshold is the recurrence count that triggers the rule.
	RecurrenceThreshold int `json:"recurrence_threshold" yaml:"recurrence_threshold"`

	// Escalation is the resulting level, CONTROLLED_ACTION or
	// ESCALATE_SAFE_MODE.
	Escalation EscalationLevel `json:"escalation" yaml:"escalation"`
}

// ConcurrencyRule raises decision confidence when several distinct faults
// are active at once. It never changes the severity classification or the
// escalation level, only confidence and reasoning.
type ConcurrencyRule struct {
	// FaultThreshold is the simultaneous fault count that triggers the boost.
	FaultThreshold int `json:"fault_threshold" yaml:"fault_threshold"`

	// ConfidenceBoost is added to the decision confidence, in (0, 1].
	ConfidenceBoost float64 `json:"confidence_boost" yaml:"confidence_boost"`
}

// PhasePolicy is the per-phase response configuration.
type PhasePolicy struct {
	// Description is a human-readable summary of the phase.
	Description string `json:"description" yaml:"description"`

	// ThresholdMultiplier is the phase's severity sensitivity divisor,
	// strictly positive. Above 1 demands higher raw scores (noisy phases),
	// below 1 treats lower scores as severe (fragile phases).
	ThresholdMultiplier float64 `json:"threshold_multiplier" yaml:"threshold_multiplier"`

	// AllowedActions is the set of actions the satellite may take
	// autonomously in this phase. LOG_EVENT and MONITOR are mandatory
	// members in every phase.
	AllowedActions []Action `json:"allowed_actions" yaml:"allowed_actions"`

	// ForbiddenActions is the set of actions that must never be recommended
	// in this phase. Disjoint from AllowedActions.
	ForbiddenActions []Action `json:"forbidden_actions" yaml:"forbidden_actions"`

	// BaseEscalation is the level assigned to HIGH and MEDIUM severity when
	// no higher-priority rule fires: ALERT_OPERATORS (no autonomy, operators
	// must act) or CONTROLLED_ACTION (autonomous response permitted).
	// SAFE_MODE uses LOG_ONLY.
	BaseEscalation EscalationLevel `json:"base_escalation" yaml:"base_escalation"`

	// DefaultAction is the recommendation when ResponseActions has no entry
	// for the anomaly type. Must be a member of AllowedActions.
	DefaultAction Action `json:"default_action" yaml:"default_action"`

	// ResponseActions maps anomaly types to preferred actions. A mapped
	// action may be forbidden in this phase; the veto rule downgrades such
	// decisions rather than recommending the action.
	ResponseActions map[string]Action `json:"response_actions,omitempty" yaml:"response_actions,omitempty"`

	// Persistence configures recurrence-based escalation, nil to disable.
	Persistence *PersistenceRule `json:"persistence,omitempty" yaml:"persistence,omitempty"`

	// Concurrency configures the simultaneous-fault confidence boost, nil to
	// disable.
	Concurrency *ConcurrencyRule `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// Allows reports whether the action is in the phase's allowed set.
func (p PhasePolicy) Allows(a Action) bool {
	for _, allowed := range p.AllowedActions {
		if allowed == a {
			return true
		}
	}
	return false
}

// Forbids reports whether the action is in the phase's forbidden set.
func (p PhasePolicy) Forbids(a Action) bool {
	for _, forbidden := range p.ForbiddenActions {
		if forbidden == a {
			return true
		}
	}
	return false
}

// ResponseAction resolves the preferred action for an anomaly type, falling
// back to the phase default. The result may be forbidden in this phase; the
// veto rule handles that at decision time.
func (p PhasePolicy) ResponseAction(anomalyType string) Action {
	if a, ok := p.ResponseActions[anomalyType]; ok {
		return a
	}
	return p.DefaultAction
}

// Document is the deserialized form of a phase policy configuration: the
// severity bands, the multiplier toggle, and one policy per mission phase.
// Sources produce Documents; NewTable validates them.
type Document struct {
	// Thresholds are the severity band boundaries. Zero values receive the
	// standard defaults.
	Thresholds Thresholds `json:"severity_thresholds" yaml:"severity_thresholds"`

	// ApplyMultiplier divides scores by the phase multiplier before
	// classification. Off by default: the multiplier is then phase metadata
	// surfaced through constraints but not applied to scores.
	ApplyMultiplier bool `json:"apply_multiplier" yaml:"apply_multiplier"`

	// Phases holds one policy per mission phase. All five must be present.
	Phases map[mission.Phase]PhasePolicy `json:"phases" yaml:"phases"`
}

// Table is the validated, immutable phase policy lookup. Construction fails
// fatally on any configuration violation so that lookups never fail at
// evaluation time. A Table is safe for concurrent use without locking.
type Table struct {
	policies        map[mission.Phase]PhasePolicy
	classifier      *Classifier
	applyMultiplier bool
}

// NewTable validates a policy document and builds the lookup table. All
// violations are collected into a single ConfigError rather than failing on
// the first.
func NewTable(doc Document) (*Table, error) {
	thresholds := doc.Thresholds
	thresholds.ApplyDefaults()

	var errs []FieldError
	if err := thresholds.Validate(); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			errs = append(errs, cfgErr.Errors...)
		} else {
			errs = append(errs, FieldError{Field: "severity_thresholds", Message: err.Error()})
		}
	}

	for phase := range doc.Phases {
		if !phase.Valid() {
			errs = append(errs, FieldError{
				Field:   "phases",
				Message: fmt.Sprintf("unknown mission phase %d", int(phase)),
			})
		}
	}

	policies := make(map[mission.Phase]PhasePolicy, len(mission.Phases()))
	for _, phase := range mission.Phases() {
		pol, ok := doc.Phases[phase]
		if !ok {
			errs = append(errs, FieldError{
				Field:   "phases." + phase.String(),
				Message: "missing policy entry",
			})
			continue
		}
		errs = append(errs, validatePhasePolicy(phase, pol)...)
		policies[phase] = pol
	}

	if len(errs) > 0 {
		return nil, &ConfigError{Errors: errs}
	}

	return &Table{
		policies:        policies,
		classifier:      NewClassifier(thresholds),
		applyMultiplier: doc.ApplyMultiplier,
	}, nil
}

// validatePhasePolicy collects every violation in one phase entry.
func validatePhasePolicy(phase mission.Phase, pol PhasePolicy) []FieldError {
	prefix := "phases." + phase.String()
	var errs []FieldError

	if pol.ThresholdMultiplier <= 0 || math.IsNaN(pol.ThresholdMultiplier) || math.IsInf(pol.ThresholdMultiplier, 0) {
		errs = append(errs, FieldError{
			Field:   prefix + ".threshold_multiplier",
			Message: fmt.Sprintf("must be strictly positive, got %v", pol.ThresholdMultiplier),
		})
	}

	allowed := make(map[Action]bool, len(pol.AllowedActions))
	for _, a := range pol.AllowedActions {
		allowed[a] = true
	}
	forbidden := make(map[Action]bool, len(pol.ForbiddenActions))
	for _, a := range pol.ForbiddenActions {
		forbidden[a] = true
	}

	for _, required := range []Action{ActionLogEvent, ActionMonitor} {
		if !allowed[required] {
			errs = append(errs, FieldError{
				Field:   prefix + ".allowed_actions",
				Message: fmt.Sprintf("%s must be allowed in every phase", required),
			})
		}
	}

	for _, a := range pol.ForbiddenActions {
		if allowed[a] {
			errs = append(errs, FieldError{
				Field:   prefix + ".forbidden_actions",
				Message: fmt.Sprintf("%s is both allowed and forbidden", a),
			})
		}
	}

	if forbidden[ActionEnterSafeMode] && phase != mission.PhaseSafeMode {
		errs = append(errs, FieldError{
			Field:   prefix + ".forbidden_actions",
			Message: "ENTER_SAFE_MODE may only be forbidden in SAFE_MODE",
		})
	}

	if phase == mission.PhaseSafeMode {
		if pol.BaseEscalation != EscalationLogOnly {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_escalation",
				Message: fmt.Sprintf("SAFE_MODE escalation is capped at LOG_ONLY, got %s", pol.BaseEscalation),
			})
		}
	} else {
		if pol.BaseEscalation != EscalationAlertOperators && pol.BaseEscalation != EscalationControlledAction {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_escalation",
				Message: fmt.Sprintf("must be ALERT_OPERATORS or CONTROLLED_ACTION, got %s", pol.BaseEscalation),
			})
		}
		if pol.DefaultAction == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".default_action",
				Message: "must be set",
			})
		}
	}

	if pol.DefaultAction != "" && !allowed[pol.DefaultAction] {
		errs = append(errs, FieldError{
			Field:   prefix + ".default_action",
			Message: fmt.Sprintf("%s is not in allowed_actions", pol.DefaultAction),
		})
	}

	for _, anomalyType := range sortedKeys(pol.ResponseActions) {
		action := pol.ResponseActions[anomalyType]
		if anomalyType == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".response_actions",
				Message: "anomaly type key must be non-empty",
			})
			continue
		}
		if !allowed[action] && !forbidden[action] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s.response_actions.%s", prefix, anomalyType),
				Message: fmt.Sprintf("%s is neither allowed nor forbidden in this phase", action),
			})
		}
	}

	if pol.Persistence != nil {
		if pol.Persistence.RecurrenceThreshold < 1 {
			errs = append(errs, FieldError{
				Field:   prefix + ".persistence.recurrence_threshold",
				Message: fmt.Sprintf("must be at least 1, got %d", pol.Persistence.RecurrenceThreshold),
			})
		}
		if pol.Persistence.Escalation != EscalationControlledAction && pol.Persistence.Escalation != EscalationSafeMode {
			errs = append(errs, FieldError{
				Field:   prefix + ".persistence.escalation",
				Message: fmt.Sprintf("must be CONTROLLED_ACTION or ESCALATE_SAFE_MODE, got %s", pol.Persistence.Escalation),
			})
		}
	}

	if pol.Concurrency != nil {
		if pol.Concurrency.FaultThreshold < 1 {
			errs = append(errs, FieldError{
				Field:   prefix + ".concurrency.fault_threshold",
				Message: fmt.Sprintf("must be at least 1, got %d", pol.Concurrency.FaultThreshold),
			})
		}
		if pol.Concurrency.ConfidenceBoost <= 0 || pol.Concurrency.ConfidenceBoost > 1 {
			errs = append(errs, FieldError{
				Field:   prefix + ".concurrency.confidence_boost",
				Message: fmt.Sprintf("must be in (0, 1], got %v", pol.Concurrency.ConfidenceBoost),
			})
		}
	}

	return errs
}

// Get returns the policy for a phase. The returned value shares its slices
// and maps with the table and must be treated as read-only.
func (t *Table) Get(phase mission.Phase) (PhasePolicy, error) {
	pol, ok := t.policies[phase]
	if !ok {
		return PhasePolicy{}, NewInputError("mission_phase", int(phase), "unknown mission phase")
	}
	return pol, nil
}

// Constraints returns the public per-phase constraint view. Slices are
// copied so callers may retain them.
func (t *Table) Constraints(phase mission.Phase) (PhaseConstraints, error) {
	pol, err := t.Get(phase)
	if err != nil {
		return PhaseConstraints{}, err
	}
	return PhaseConstraints{
		Phase:               phase,
		Description:         pol.Description,
		AllowedActions:      cloneActions(pol.AllowedActions),
		ForbiddenActions:    cloneActions(pol.ForbiddenActions),
		ThresholdMultiplier: pol.ThresholdMultiplier,
	}, nil
}

// Classify maps a score to a severity level under this table's bands. With
// the multiplier enabled the score is first divided by the phase's
// threshold multiplier.
func (t *Table) Classify(phase mission.Phase, score float64) (SeverityLevel, error) {
	pol, err := t.Get(phase)
	if err != nil {
		return SeverityLow, err
	}
	if t.applyMultiplier {
		return t.classifier.ClassifyAdjusted(score, pol.ThresholdMultiplier)
	}
	return t.classifier.Classify(score)
}

// Thresholds returns the severity bands in effect.
func (t *Table) Thresholds() Thresholds {
	return t.classifier.Thresholds()
}

// AppliesMultiplier reports whether scores are divided by the phase
// multiplier before classification.
func (t *Table) AppliesMultiplier() bool {
	return t.applyMultiplier
}

// DefaultPhasePolicies returns the built-in policy set, reproducing the
// reference deployment table.
func DefaultPhasePolicies() map[mission.Phase]PhasePolicy {
	return map[mission.Phase]PhasePolicy{
		mission.PhaseLaunch: {
			Description:         "Rocket ascent and orbital insertion",
			ThresholdMultiplier: 2.0,
			AllowedActions:      []Action{ActionLogEvent, ActionMonitor, ActionAlertOperators},
			ForbiddenActions:    []Action{ActionRestartService, ActionFireThrusters, ActionPayloadOperations, ActionAdjustAttitude},
			BaseEscalation:      EscalationAlertOperators,
			DefaultAction:       ActionAlertOperators,
			Concurrency:         &ConcurrencyRule{FaultThreshold: 2, ConfidenceBoost: 0.1},
		},
		mission.PhaseDeployment: {
			Description:         "System stabilization and checkout",
			ThresholdMultiplier: 1.5,
			AllowedActions:      []Action{ActionLogEvent, ActionMonitor, ActionAlertOperators, ActionRestartService},
			ForbiddenActions:    []Action{ActionFireThrusters, ActionPayloadOperations},
			BaseEscalation:      EscalationAlertOperators,
			DefaultAction:       ActionAlertOperators,
			ResponseActions: map[string]Action{
				"software_fault": ActionRestartService,
				"power_fault":    ActionRestartService,
			},
			Persistence: &PersistenceRule{RecurrenceThreshold: 2, Escalation: EscalationControlledAction},
			Concurrency: &ConcurrencyRule{FaultThreshold: 2, ConfidenceBoost: 0.1},
		},
		mission.PhaseNominalOps: {
			Description:         "Standard mission operations",
			ThresholdMultiplier: 1.0,
			AllowedActions:      []Action{ActionLogEvent, ActionMonitor, ActionAlertOperators, ActionRestartService, ActionAdjustAttitude, ActionFireThrusters},
			ForbiddenActions:    []Action{ActionPayloadOperations},
			BaseEscalation:      EscalationControlledAction,
			DefaultAction:       ActionRestartService,
			ResponseActions: map[string]Action{
				"thermal_fault":    ActionAdjustAttitude,
				"power_fault":      ActionRestartService,
				"software_fault":   ActionRestartService,
				"attitude_fault":   ActionAdjustAttitude,
				"propulsion_fault": ActionFireThrusters,
				"orbit_decay":      ActionFireThrusters,
			},
			Persistence: &PersistenceRule{RecurrenceThreshold: 3, Escalation: EscalationSafeMode},
			Concurrency: &ConcurrencyRule{FaultThreshold: 2, ConfidenceBoost: 0.1},
		},
		mission.PhasePayloadOps: {
			Description:         "Science/mission payload operations",
			ThresholdMultiplier: 1.2,
			AllowedActions:      []Action{ActionLogEvent, ActionMonitor, ActionAlertOperators, ActionRestartService, ActionPayloadOperations},
			ForbiddenActions:    []Action{ActionFireThrusters, ActionAdjustAttitude},
			BaseEscalation:      EscalationControlledAction,
			DefaultAction:       ActionPayloadOperations,
			ResponseActions: map[string]Action{
				"payload_fault":    ActionPayloadOperations,
				"power_fault":      ActionRestartService,
				"software_fault":   ActionRestartService,
				"thermal_fault":    ActionAdjustAttitude,
				"propulsion_fault": ActionFireThrusters,
			},
			Persistence: &PersistenceRule{RecurrenceThreshold: 3, Escalation: EscalationSafeMode},
			Concurrency: &ConcurrencyRule{FaultThreshold: 2, ConfidenceBoost: 0.1},
		},
		mission.PhaseSafeMode: {
			Description:         "Minimal power survival mode",
			ThresholdMultiplier: 0.8,
			AllowedActions:      []Action{ActionLogEvent, ActionMonitor},
			ForbiddenActions:    []Action{ActionRestartService, ActionFireThrusters, ActionPayloadOperations, ActionAdjustAttitude, ActionEnterSafeMode},
			BaseEscalation:      EscalationLogOnly,
			DefaultAction:       ActionMonitor,
		},
	}
}

// DefaultDocument returns the built-in policy document: default severity
// bands, multiplier kept as metadata, and the default phase table.
func DefaultDocument() Document {
	return Document{
		Thresholds: DefaultThresholds(),
		Phases:     DefaultPhasePolicies(),
	}
}

// DefaultTable builds the table from DefaultDocument. The defaults are
// maintained alongside the validation rules, so failure is a programming
// error and panics.
func DefaultTable() *Table {
	table, err := NewTable(DefaultDocument())
	if err != nil {
		panic(fmt.Sprintf("built-in phase policies invalid: %v", err))
	}
	return table
}

func cloneActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

func sortedKeys(m map[string]Action) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
