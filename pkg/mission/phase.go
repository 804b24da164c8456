package mission

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phase is the satellite's operational phase. Phases are ordered: the
// zero-based ordinal encodes the nominal mission progression, with SafeMode
// last as the most restrictive phase.
type Phase int

const (
	// PhaseLaunch is rocket ascent and orbital insertion.
	PhaseLaunch Phase = iota

	// PhaseDeployment is system stabilization and checkout.
	PhaseDeployment

	// PhaseNominalOps is standard mission operations.
	PhaseNominalOps

	// PhasePayloadOps is science/mission payload operations.
	PhasePayloadOps

	// PhaseSafeMode is the minimal power survival mode. It is entered through
	// escalation from any phase and exited only through operator recovery.
	PhaseSafeMode
)

// phaseNames maps each phase to its canonical wire name. The table is
// exhaustive; Valid and String rely on it.
var phaseNames = [...]string{
	PhaseLaunch:     "LAUNCH",
	PhaseDeployment: "DEPLOYMENT",
	PhaseNominalOps: "NOMINAL_OPS",
	PhasePayloadOps: "PAYLOAD_OPS",
	PhaseSafeMode:   "SAFE_MODE",
}

// Phases returns all phases in mission order.
func Phases() []Phase {
	return []Phase{PhaseLaunch, PhaseDeployment, PhaseNominalOps, PhasePayloadOps, PhaseSafeMode}
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseLaunch && p <= PhaseSafeMode
}

// String returns the canonical phase name (e.g. "NOMINAL_OPS").
func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Next returns the immediate successor in the nominal forward progression.
// It returns false for PayloadOps (end of progression) and SafeMode (exits
// require recovery, not progression).
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseLaunch, PhaseDeployment, PhaseNominalOps:
		return p + 1, true
	default:
		return p, false
	}
}

// ParsePhase converts a phase name to a Phase. Matching is case-insensitive
// and ignores surrounding whitespace; unknown names return an error listing
// the valid phases.
func ParsePhase(s string) (Phase, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for p, n := range phaseNames {
		if n == name {
			return Phase(p), nil
		}
	}
	return 0, fmt.Errorf("unknown mission phase %q (valid: %s)", s, strings.Join(phaseNames[:], ", "))
}

// MarshalJSON encodes the phase as its canonical name.
func (p Phase) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid mission phase %d", int(p))
	}
	return []byte(`"` + phaseNames[p] + `"`), nil
}

// UnmarshalJSON decodes a phase from its canonical name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText encodes the phase as its canonical name. It makes Phase usable
// as a JSON map key.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid mission phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText decodes a phase from its canonical name.
func (p *Phase) UnmarshalText(data []byte) error {
	parsed, err := ParsePhase(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML encodes the phase as its canonical name.
func (p Phase) MarshalYAML() (interface{}, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid mission phase %d", int(p))
	}
	return phaseNames[p], nil
}

// UnmarshalYAML decodes a phase from its canonical name.
func (p *Phase) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
