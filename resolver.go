package stateserver

import "github.com/ityonemo/state-server/graph"

// resolver answers "which handler serves (event kind, state)?".
//
// Each lookup returns a pair: the primary handler and the Defer target.
// The primary is the top-level callback when defined, else the
// state-scoped one (automatic fallthrough happens only for a missing
// top-level function). The Defer target is the state-scoped handler,
// and is nil when the state-scoped handler was already promoted to
// primary - a handler never trampolines to itself.
//
// A nil primary means the engine applies the per-kind default.
type resolver struct {
	top    Callbacks
	scoped map[graph.State]StateCallbacks
}

func newResolver(def Definition) *resolver {
	return &resolver{top: def.Callbacks, scoped: def.States}
}

func (r *resolver) callPair(state graph.State) (primary, shim CallHandler) {
	if r.top.HandleCall != nil {
		return r.top.HandleCall, r.scoped[state].HandleCall
	}
	return r.scoped[state].HandleCall, nil
}

func (r *resolver) castPair(state graph.State) (primary, shim PayloadHandler) {
	return pickPayload(r.top.HandleCast, r.scoped[state].HandleCast)
}

func (r *resolver) infoPair(state graph.State) (primary, shim PayloadHandler) {
	return pickPayload(r.top.HandleInfo, r.scoped[state].HandleInfo)
}

func (r *resolver) internalPair(state graph.State) (primary, shim PayloadHandler) {
	return pickPayload(r.top.HandleInternal, r.scoped[state].HandleInternal)
}

func (r *resolver) continuePair(state graph.State) (primary, shim PayloadHandler) {
	return pickPayload(r.top.HandleContinue, r.scoped[state].HandleContinue)
}

func (r *resolver) timeoutPair(state graph.State) (primary, shim PayloadHandler) {
	return pickPayload(r.top.HandleTimeout, r.scoped[state].HandleTimeout)
}

func (r *resolver) transitionPair(state graph.State) (primary, shim TransitionHandler) {
	if r.top.HandleTransition != nil {
		return r.top.HandleTransition, r.scoped[state].HandleTransition
	}
	return r.scoped[state].HandleTransition, nil
}

func (r *resolver) entryPair(state graph.State) (primary, shim EntryHandler) {
	if r.top.OnStateEntry != nil {
		return r.top.OnStateEntry, r.scoped[state].OnStateEntry
	}
	return r.scoped[state].OnStateEntry, nil
}

// terminate prefers the state-scoped hook for the final state.
func (r *resolver) terminate(state graph.State) TerminateHandler {
	if h := r.scoped[state].Terminate; h != nil {
		return h
	}
	return r.top.Terminate
}

func pickPayload(top, scoped PayloadHandler) (PayloadHandler, PayloadHandler) {
	if top != nil {
		return top, scoped
	}
	return scoped, nil
}
