package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput categorizes per-call input failures: a severity score
// outside [0,1] or an unknown mission phase. Such calls fail; the engine
// never substitutes a default decision for bad input.
var ErrInvalidInput = errors.New("invalid evaluation input")

// FieldError is one policy configuration violation, identified by the dotted
// path to the offending field.
type FieldError struct {
	// Field is the dotted path (e.g. "phases.LAUNCH.threshold_multiplier").
	Field string

	// Message describes the violation.
	Message string
}

// Error returns the formatted field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError reports one or more policy configuration violations. It is
// fatal at load time: a table is either fully valid or not built at all.
type ConfigError struct {
	// Errors lists every violation found, so operators fix the file in one pass.
	Errors []FieldError
}

// Error returns all violations in one message.
func (e *ConfigError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "phase policy configuration invalid"
	case 1:
		return fmt.Sprintf("phase policy configuration invalid: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "phase policy configuration invalid with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// InputError describes a rejected evaluation input.
type InputError struct {
	// Field names the offending input ("severity_score", "mission_phase").
	Field string

	// Value is the rejected value, rendered into the message.
	Value interface{}

	// Message describes why the value was rejected.
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// Unwrap returns ErrInvalidInput so callers can categorize with errors.Is.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInputError creates an InputError.
func NewInputError(field string, value interface{}, message string) *InputError {
	return &InputError{Field: field, Value: value, Message: message}
}
