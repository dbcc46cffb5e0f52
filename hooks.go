package stateserver

import "github.com/ityonemo/state-server/graph"

// Hooks observes instance lifecycle for tooling and metrics. Every
// field is optional. Hooks are invoked synchronously from the
// instance's loop goroutine and must not block.
type Hooks struct {
	// OnStart fires once when the instance's init completes, with its
	// identifier.
	OnStart func(id string)

	// OnEvent fires once per dispatched event with the event kind
	// ("call", "cast", "info", "internal", "continue", "timeout", ...).
	OnEvent func(kind string)

	// OnTransition fires after every state entry. tr is NoTransition
	// for entries via Goto or at startup.
	OnTransition func(from graph.State, tr graph.Transition, to graph.State)

	// OnStop fires once when the instance terminates, with the stop
	// reason (nil for a normal stop).
	OnStop func(reason error)
}

func (h Hooks) start(id string) {
	if h.OnStart != nil {
		h.OnStart(id)
	}
}

func (h Hooks) event(kind eventKind) {
	if h.OnEvent != nil {
		h.OnEvent(kind.String())
	}
}

func (h Hooks) transition(from graph.State, tr graph.Transition, to graph.State) {
	if h.OnTransition != nil {
		h.OnTransition(from, tr, to)
	}
}

func (h Hooks) stop(reason error) {
	if h.OnStop != nil {
		h.OnStop(reason)
	}
}
