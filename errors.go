package stateserver

import (
	"errors"
	"fmt"

	"github.com/ityonemo/state-server/graph"
)

// Sentinel errors surfaced by the shell API.
var (
	// ErrStopped is returned when an operation is attempted against an
	// instance that has terminated (wrapped; errors.Is matches).
	ErrStopped = errors.New("server stopped")

	// ErrCallTimeout is returned by Call when the caller-side timeout
	// expires. The server keeps processing; only the caller gives up.
	ErrCallTimeout = errors.New("call timed out")

	// ErrNameTaken is returned by Start when the requested registered
	// name is already claimed.
	ErrNameTaken = errors.New("name already registered")

	// ErrIgnore is returned by Start when Init declined the start.
	ErrIgnore = errors.New("init ignored start")
)

// RuntimeError represents a programmer error detected during dispatch.
//
// Runtime errors are deliberate crashes: an invalid transition request,
// an invalid goto destination, a missing required handler, or a
// directive in a position that forbids it all represent bugs in the
// server's definition, not recoverable conditions. The owning instance
// dies (its terminate callback still runs); supervision and restart are
// an external concern.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// State is the current state at the time of the error, when known.
	State graph.State

	// Transition is the offending transition, for transition errors.
	Transition graph.Transition
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidTransition indicates a transition request the graph
	// does not declare from the current state.
	ErrCodeInvalidTransition RuntimeErrorCode = "INVALID_TRANSITION"

	// ErrCodeInvalidGoto indicates a goto to an undeclared state.
	ErrCodeInvalidGoto RuntimeErrorCode = "INVALID_GOTO"

	// ErrCodeMissingHandler indicates the engine needed a handler the
	// definition does not supply (HandleInfo excepted - see resolver).
	ErrCodeMissingHandler RuntimeErrorCode = "MISSING_HANDLER"

	// ErrCodeForbiddenDirective indicates a Transition or Goto directive
	// in a context that excludes them (entry callbacks, cancel results,
	// init).
	ErrCodeForbiddenDirective RuntimeErrorCode = "FORBIDDEN_DIRECTIVE"

	// ErrCodeForbiddenResult indicates a result shape the invoking
	// pipeline does not accept (Cancel outside a transition handler,
	// Reply from one).
	ErrCodeForbiddenResult RuntimeErrorCode = "FORBIDDEN_RESULT"

	// ErrCodeUndeclaredState indicates a state-scoped handler set bound
	// to a state the graph does not declare.
	ErrCodeUndeclaredState RuntimeErrorCode = "UNDECLARED_STATE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.State != "" && e.Transition != "":
		return fmt.Sprintf("%s: %s (state=%s, transition=%s)", e.Code, e.Message, e.State, e.Transition)
	case e.State != "":
		return fmt.Sprintf("%s: %s (state=%s)", e.Code, e.Message, e.State)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsInvalidTransition reports whether err is an invalid transition
// crash. Uses errors.As to handle wrapped errors.
func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrCodeInvalidTransition)
}

// IsMissingHandler reports whether err is a missing handler crash.
func IsMissingHandler(err error) bool {
	return hasCode(err, ErrCodeMissingHandler)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
