package mission

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition indicates a phase transition that the state
	// machine does not permit. The current phase is unchanged.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrRecoveryNotPermitted indicates a Recover call made while the
	// satellite is not in SAFE_MODE, or targeting SAFE_MODE itself.
	ErrRecoveryNotPermitted = errors.New("recovery not permitted")

	// ErrRecoveryUnauthorized indicates a Recover call without an
	// authorizing operator identity.
	ErrRecoveryUnauthorized = errors.New("recovery requires operator authorization")
)

// TransitionError describes a rejected phase transition.
type TransitionError struct {
	// From is the phase the satellite was in when the transition was requested.
	From Phase

	// To is the requested target phase.
	To Phase

	// Reason is a human-readable explanation of why the transition was rejected.
	Reason string

	// Cause is the sentinel categorizing the rejection.
	Cause error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Reason)
}

// Unwrap returns the sentinel categorizing the rejection, so callers can use
// errors.Is(err, ErrInvalidTransition) and friends.
func (e *TransitionError) Unwrap() error {
	return e.Cause
}

// NewTransitionError creates a TransitionError carrying the given sentinel.
func NewTransitionError(from, to Phase, reason string, cause error) *TransitionError {
	if cause == nil {
		cause = ErrInvalidTransition
	}
	return &TransitionError{From: from, To: to, Reason: reason, Cause: cause}
}
