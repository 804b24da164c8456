package engine

import (
	"fmt"
)

// ReloadError indicates a policy reload failure. The engine keeps serving
// the previously loaded table when a reload fails.
type ReloadError struct {
	Cause error
}

// Error returns the error message.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("policy reload failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ReloadError) Unwrap() error {
	return e.Cause
}
