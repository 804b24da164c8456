package policy

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"astraguard/aegis/pkg/mission"
)

// Action identifies a response action the policy engine can recommend or
// gate. The engine never invents identifiers beyond these, but configuration
// may introduce additional ones for mission-specific hardware.
type Action string

// Known response actions.
const (
	// ActionEnterSafeMode requests the escalation transition into SAFE_MODE.
	// It is never forbidden in any phase except SAFE_MODE itself.
	ActionEnterSafeMode Action = "ENTER_SAFE_MODE"

	// ActionLogEvent records the anomaly in the event log. Allowed in every phase.
	ActionLogEvent Action = "LOG_EVENT"

	// ActionMonitor increases observation of the affected subsystem. Allowed
	// in every phase.
	ActionMonitor Action = "MONITOR"

	// ActionAlertOperators pages the ground segment without autonomous action.
	ActionAlertOperators Action = "ALERT_OPERATORS"

	// ActionRestartService restarts the affected onboard software service.
	ActionRestartService Action = "RESTART_SERVICE"

	// ActionAdjustAttitude commands a corrective attitude maneuver.
	ActionAdjustAttitude Action = "ADJUST_ATTITUDE"

	// ActionFireThrusters commands a propulsive maneuver.
	ActionFireThrusters Action = "FIRE_THRUSTERS"

	// ActionPayloadOperations reconfigures or power-cycles the payload.
	ActionPayloadOperations Action = "PAYLOAD_OPERATIONS"

	// ActionLogOnly is the terminal recommendation while already in
	// SAFE_MODE: record and do nothing else.
	ActionLogOnly Action = "LOG_ONLY"
)

// SeverityLevel is the ordinal severity classification of an anomaly,
// derived from its normalized severity score.
type SeverityLevel int

const (
	SeverityLow SeverityLevel = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{
	SeverityLow:      "LOW",
	SeverityMedium:   "MEDIUM",
	SeverityHigh:     "HIGH",
	SeverityCritical: "CRITICAL",
}

// Valid reports whether s is one of the defined severity levels.
func (s SeverityLevel) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// String returns the severity name (e.g. "HIGH").
func (s SeverityLevel) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SeverityLevel(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity converts a severity name to a SeverityLevel.
func ParseSeverity(s string) (SeverityLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for lvl, n := range severityNames {
		if n == name {
			return SeverityLevel(lvl), nil
		}
	}
	return 0, fmt.Errorf("unknown severity level %q (valid: %s)", s, strings.Join(severityNames[:], ", "))
}

// MarshalJSON encodes the severity as its name.
func (s SeverityLevel) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid severity level %d", int(s))
	}
	return []byte(`"` + severityNames[s] + `"`), nil
}

// UnmarshalJSON decodes a severity from its name.
func (s *SeverityLevel) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSeverity(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EscalationLevel is the ordinal response posture chosen for an anomaly.
type EscalationLevel int

const (
	EscalationLogOnly EscalationLevel = iota
	EscalationAlertOperators
	EscalationControlledAction
	EscalationSafeMode
)

var escalationNames = [...]string{
	EscalationLogOnly:          "LOG_ONLY",
	EscalationAlertOperators:   "ALERT_OPERATORS",
	EscalationControlledAction: "CONTROLLED_ACTION",
	EscalationSafeMode:         "ESCALATE_SAFE_MODE",
}

// Valid reports whether e is one of the defined escalation levels.
func (e EscalationLevel) Valid() bool {
	return e >= EscalationLogOnly && e <= EscalationSafeMode
}

// String returns the escalation level name (e.g. "CONTROLLED_ACTION").
func (e EscalationLevel) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EscalationLevel(%d)", int(e))
	}
	return escalationNames[e]
}

// ParseEscalation converts an escalation level name to an EscalationLevel.
func ParseEscalation(s string) (EscalationLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for lvl, n := range escalationNames {
		if n == name {
			return EscalationLevel(lvl), nil
		}
	}
	return 0, fmt.Errorf("unknown escalation level %q (valid: %s)", s, strings.Join(escalationNames[:], ", "))
}

// Downgrade returns the escalation one level below e, bottoming out at
// LOG_ONLY. Used by the forbidden-action veto.
func (e EscalationLevel) Downgrade() EscalationLevel {
	if e <= EscalationLogOnly {
		return EscalationLogOnly
	}
	return e - 1
}

// MarshalJSON encodes the escalation level as its name.
func (e EscalationLevel) MarshalJSON() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid escalation level %d", int(e))
	}
	return []byte(`"` + escalationNames[e] + `"`), nil
}

// UnmarshalJSON decodes an escalation level from its name.
func (e *EscalationLevel) UnmarshalJSON(data []byte) error {
	parsed, err := ParseEscalation(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalYAML encodes the escalation level as its name.
func (e EscalationLevel) MarshalYAML() (interface{}, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid escalation level %d", int(e))
	}
	return escalationNames[e], nil
}

// UnmarshalYAML decodes an escalation level from its name.
func (e *EscalationLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseEscalation(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EventAttributes are the recognized contextual attributes of an anomaly
// event. All fields are optional; zero values mean "not observed".
type EventAttributes struct {
	// RecurrenceCount is how many times this anomaly type has recurred
	// recently, used to detect systemic patterns.
	RecurrenceCount int `json:"recurrence_count,omitempty" yaml:"recurrence_count,omitempty"`

	// SimultaneousFaults is the count of concurrently active distinct
	// faults. It contributes to confidence and reasoning only, never to the
	// severity classification.
	SimultaneousFaults int `json:"simultaneous_faults,omitempty" yaml:"simultaneous_faults,omitempty"`

	// Subsystem tags the affected subsystem (e.g. "POWER", "PAYLOAD").
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// AnomalyEvent is one anomaly signal submitted for evaluation. Events are
// caller-owned, transient values: the engine never stores them.
type AnomalyEvent struct {
	// AnomalyType names the fault class (e.g. "power_fault", "thermal_fault").
	AnomalyType string `json:"anomaly_type" yaml:"anomaly_type"`

	// SeverityScore is the detector's normalized severity in [0,1].
	// Out-of-range scores fail evaluation; they are never clamped.
	SeverityScore float64 `json:"severity_score" yaml:"severity_score"`

	// Attributes carries the recognized contextual attributes.
	Attributes EventAttributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Decision is the immutable outcome of evaluating one anomaly event against
// the phase policy. A fresh value is produced per call.
type Decision struct {
	// ID uniquely identifies this decision for audit correlation.
	ID string `json:"decision_id"`

	// MissionPhase is the phase the decision was evaluated under.
	MissionPhase mission.Phase `json:"mission_phase"`

	// AnomalyType echoes the evaluated event's fault class.
	AnomalyType string `json:"anomaly_type"`

	// Severity is the classified severity level.
	Severity SeverityLevel `json:"severity"`

	// SeverityScore echoes the evaluated event's raw score.
	SeverityScore float64 `json:"severity_score"`

	// Escalation is the chosen response posture.
	Escalation EscalationLevel `json:"escalation_level"`

	// IsAllowed reports whether autonomous execution of the recommended
	// action is granted in the current phase.
	IsAllowed bool `json:"is_allowed"`

	// RecommendedAction is the action the engine recommends. It is never a
	// member of the phase's forbidden set.
	RecommendedAction Action `json:"recommended_action"`

	// VetoedAction is the action a rule originally selected when the phase
	// policy forbade it and the decision was downgraded. Empty when no veto
	// applied.
	VetoedAction Action `json:"vetoed_action,omitempty"`

	// AllowedActions is the phase's currently allowed action set.
	AllowedActions []Action `json:"allowed_actions"`

	// Confidence is the engine's confidence in the decision, in [0,1],
	// monotonically non-decreasing in score and corroborating attributes.
	Confidence float64 `json:"confidence"`

	// Reasoning explains which rule fired, in human-auditable form. Never empty.
	Reasoning string `json:"reasoning"`

	// RuleFired names the resolver rule that produced the decision.
	RuleFired string `json:"rule_fired"`

	// EvaluatedAt is the decision timestamp.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// PhaseConstraints is the externally visible summary of one phase's policy,
// returned by constraint lookups.
type PhaseConstraints struct {
	Phase               mission.Phase `json:"phase"`
	Description         string        `json:"description"`
	AllowedActions      []Action      `json:"allowed_actions"`
	ForbiddenActions    []Action      `json:"forbidden_actions"`
	ThresholdMultiplier float64       `json:"threshold_multiplier"`
}
