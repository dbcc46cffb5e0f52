package stateserver

import (
	"fmt"

	"github.com/ityonemo/state-server/graph"
)

// PayloadHandler is the common shape of the cast/info/internal/
// continue/timeout entry points.
type PayloadHandler func(payload any, state graph.State, data any) Result

// CallHandler handles synchronous calls. The From token may be captured
// and replied to later instead of replying via the Result.
type CallHandler func(req any, from From, state graph.State, data any) Result

// TransitionHandler runs before a declared transition is taken. It may
// return Cancel to abort, leaving the instance in its current state.
type TransitionHandler func(state graph.State, tr graph.Transition, data any) Result

// EntryHandler runs every time the current state is established: after
// a transition (tr names it), after a Goto or at startup (tr is
// NoTransition). Its directive list excludes Transition and Goto - a
// state entry cannot be redirected from inside the entry callback.
type EntryHandler func(tr graph.Transition, state graph.State, data any) Result

// TerminateHandler runs on every termination path, including crashes.
// Its return is discarded; termination cannot be vetoed.
type TerminateHandler func(reason error, state graph.State, data any)

// Callbacks is the top-level handler set of a server type. Any entry
// may be nil; the engine substitutes per-kind defaults. For the
// required-interaction kinds (call, cast, internal, continue, timeout)
// the default crashes the instance with a MISSING_HANDLER error -
// silently dropping those events would hide a bug. HandleInfo's default
// instead logs a warning and continues: arbitrary out-of-band messages
// may always arrive. HandleTransition and OnStateEntry default to
// no-ops.
type Callbacks struct {
	// Init produces the initial data (and optionally an initial state
	// override and startup directives). A nil Init accepts the start
	// argument itself as the initial data.
	Init func(arg any) InitResult

	HandleCall       CallHandler
	HandleCast       PayloadHandler
	HandleInfo       PayloadHandler
	HandleInternal   PayloadHandler
	HandleContinue   PayloadHandler
	HandleTimeout    PayloadHandler
	HandleTransition TransitionHandler
	OnStateEntry     EntryHandler
	Terminate        TerminateHandler
}

// StateCallbacks is a handler set scoped to a single state. It is
// reached automatically when the corresponding top-level handler is
// absent, or explicitly when a top-level handler returns Defer. A
// state-scoped Terminate takes precedence over the top-level one when
// the instance dies in that state.
type StateCallbacks struct {
	HandleCall       CallHandler
	HandleCast       PayloadHandler
	HandleInfo       PayloadHandler
	HandleInternal   PayloadHandler
	HandleContinue   PayloadHandler
	HandleTimeout    PayloadHandler
	HandleTransition TransitionHandler
	OnStateEntry     EntryHandler
	Terminate        TerminateHandler
}

// Definition declares a server type: its state graph, top-level
// callbacks, and optional per-state handler sets. A Definition is
// plain data; the same value may back any number of running instances.
type Definition struct {
	Graph     *graph.Graph
	Callbacks Callbacks
	States    map[graph.State]StateCallbacks
}

// validate catches construction-time errors before an instance starts.
func (d Definition) validate() error {
	if d.Graph == nil {
		return fmt.Errorf("definition has no state graph")
	}
	for state := range d.States {
		if !d.Graph.Contains(state) {
			return &RuntimeError{
				Code:    ErrCodeUndeclaredState,
				Message: "state-scoped handler set bound to undeclared state",
				State:   state,
			}
		}
	}
	return nil
}
