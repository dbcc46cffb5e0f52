package graph

import "fmt"

// ValidationError reports a malformed graph declaration.
//
// Validation failures are construction-time fatal: New refuses to build
// the Graph, so an invalid graph can never reach the runtime.
type ValidationError struct {
	// Code identifies the failure category.
	Code ValidationErrorCode

	// Message is a human-readable description.
	Message string

	// State is the offending state, when one is identifiable.
	State State

	// Transition is the offending transition, when one is identifiable.
	Transition Transition
}

// ValidationErrorCode categorizes graph validation failures.
type ValidationErrorCode string

const (
	// ErrCodeEmptyGraph indicates a declaration with zero states.
	ErrCodeEmptyGraph ValidationErrorCode = "EMPTY_GRAPH"

	// ErrCodeDuplicateState indicates the same state declared twice.
	ErrCodeDuplicateState ValidationErrorCode = "DUPLICATE_STATE"

	// ErrCodeDuplicateTransition indicates the same transition declared
	// twice within one state.
	ErrCodeDuplicateTransition ValidationErrorCode = "DUPLICATE_TRANSITION"

	// ErrCodeUndeclaredTarget indicates a transition whose destination is
	// not a declared state.
	ErrCodeUndeclaredTarget ValidationErrorCode = "UNDECLARED_TARGET"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.State != "" && e.Transition != "":
		return fmt.Sprintf("%s: %s (state=%s, transition=%s)", e.Code, e.Message, e.State, e.Transition)
	case e.State != "":
		return fmt.Sprintf("%s: %s (state=%s)", e.Code, e.Message, e.State)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}
