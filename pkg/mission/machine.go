package mission

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Transition is one committed phase change, recorded for audit.
type Transition struct {
	// From is the phase before the transition.
	From Phase `json:"from"`

	// To is the phase after the transition.
	To Phase `json:"to"`

	// Reason is the caller-supplied justification. Never empty.
	Reason string `json:"reason"`

	// Recovery is true when the transition was an operator-authorized exit
	// from SAFE_MODE rather than a progression or escalation.
	Recovery bool `json:"recovery,omitempty"`

	// AuthorizedBy identifies the authorizing operator for recovery
	// transitions. Empty for non-recovery transitions.
	AuthorizedBy string `json:"authorized_by,omitempty"`

	// At is the commit time of the transition.
	At time.Time `json:"at"`
}

// StateMachine owns the authoritative current mission phase.
//
// The current phase is the only mutable shared state in the decision core:
// reads take a shared lock, transitions take an exclusive lock and either
// fully commit or fully fail. Transition listeners run after commit, outside
// the lock, so they may safely call Current.
type StateMachine struct {
	mu        sync.RWMutex
	current   Phase
	history   []Transition
	listeners []func(Transition)
	logger    *slog.Logger
}

// NewStateMachine creates a state machine starting in the given phase.
func NewStateMachine(initial Phase, logger *slog.Logger) (*StateMachine, error) {
	if !initial.Valid() {
		return nil, fmt.Errorf("invalid initial mission phase %d", int(initial))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{
		current: initial,
		logger:  logger.With("component", "mission.statemachine"),
	}, nil
}

// Current returns the current mission phase. Safe for concurrent use and
// side-effect free.
func (m *StateMachine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// TransitionTo requests a phase change and returns the committed transition.
//
// Permitted edges are the nominal forward progression (each phase to its
// immediate successor) and the escalation edge into SAFE_MODE from any other
// phase. Everything else, including exits from SAFE_MODE, fails with a
// TransitionError wrapping ErrInvalidTransition and leaves the phase
// unchanged. The reason is mandatory: transitions exist to be audited.
func (m *StateMachine) TransitionTo(target Phase, reason string) (*Transition, error) {
	if !target.Valid() {
		return nil, NewTransitionError(m.Current(), target, "unknown target phase", nil)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, NewTransitionError(m.Current(), target, "transition reason is required", nil)
	}

	m.mu.Lock()
	from := m.current

	if err := validateTransition(from, target); err != nil {
		m.mu.Unlock()
		m.logger.Warn("phase transition rejected",
			"from", from.String(),
			"to", target.String(),
			"reason", reason,
			"error", err,
		)
		return nil, err
	}

	tr := Transition{
		From:   from,
		To:     target,
		Reason: reason,
		At:     time.Now().UTC(),
	}
	m.current = target
	m.history = append(m.history, tr)
	m.mu.Unlock()

	m.logger.Info("phase transition committed",
		"from", tr.From.String(),
		"to", tr.To.String(),
		"reason", tr.Reason,
	)

	m.notify(tr)
	return &tr, nil
}

// Recover requests the operator-authorized exit from SAFE_MODE.
//
// It is the only way out of SAFE_MODE: the generic progression edge never
// leaves it, so an accidental auto-exit is impossible. Recover fails with
// ErrRecoveryNotPermitted unless the satellite is currently in SAFE_MODE and
// the target is a different, valid phase, and with ErrRecoveryUnauthorized
// when no operator identity is supplied.
func (m *StateMachine) Recover(target Phase, reason, authorizedBy string) (*Transition, error) {
	if !target.Valid() {
		return nil, NewTransitionError(m.Current(), target, "unknown target phase", ErrRecoveryNotPermitted)
	}
	if target == PhaseSafeMode {
		return nil, NewTransitionError(m.Current(), target, "recovery target cannot be SAFE_MODE", ErrRecoveryNotPermitted)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, NewTransitionError(m.Current(), target, "recovery reason is required", ErrRecoveryNotPermitted)
	}
	if strings.TrimSpace(authorizedBy) == "" {
		return nil, NewTransitionError(m.Current(), target, "recovery requires an authorizing operator", ErrRecoveryUnauthorized)
	}

	m.mu.Lock()
	from := m.current

	if from != PhaseSafeMode {
		m.mu.Unlock()
		return nil, NewTransitionError(from, target,
			fmt.Sprintf("recovery only applies in SAFE_MODE, currently %s", from), ErrRecoveryNotPermitted)
	}

	tr := Transition{
		From:         from,
		To:           target,
		Reason:       reason,
		Recovery:     true,
		AuthorizedBy: authorizedBy,
		At:           time.Now().UTC(),
	}
	m.current = target
	m.history = append(m.history, tr)
	m.mu.Unlock()

	m.logger.Info("safe mode recovery committed",
		"to", tr.To.String(),
		"reason", tr.Reason,
		"authorized_by", tr.AuthorizedBy,
	)

	m.notify(tr)
	return &tr, nil
}

// notify invokes registered listeners after a commit, outside the state lock.
func (m *StateMachine) notify(tr Transition) {
	m.mu.RLock()
	listeners := make([]func(Transition), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(tr)
	}
}

// OnTransition registers a listener invoked after every committed transition.
// Listeners run synchronously on the transitioning goroutine and must not
// block for long.
func (m *StateMachine) OnTransition(fn func(Transition)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// History returns a copy of all committed transitions in commit order.
func (m *StateMachine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// validateTransition checks whether the edge from -> to is permitted.
func validateTransition(from, to Phase) error {
	if from == to {
		if from == PhaseSafeMode {
			return NewTransitionError(from, to, "already in SAFE_MODE", nil)
		}
		return NewTransitionError(from, to, "already in this phase", nil)
	}

	// Escalation edge: always permitted into SAFE_MODE.
	if to == PhaseSafeMode {
		return nil
	}

	// SAFE_MODE exits go through Recover, never the progression edge.
	if from == PhaseSafeMode {
		return NewTransitionError(from, to, "exit from SAFE_MODE requires operator recovery", nil)
	}

	// Nominal forward progression: immediate successor only.
	if next, ok := from.Next(); ok && next == to {
		return nil
	}

	return NewTransitionError(from, to,
		fmt.Sprintf("not a forward progression edge (next after %s is %s)", from, progressionNext(from)), nil)
}

// progressionNext names the valid successor for error messages.
func progressionNext(p Phase) string {
	if next, ok := p.Next(); ok {
		return next.String()
	}
	return "none"
}
