package stateserver

import (
	"errors"
	"fmt"

	"github.com/ityonemo/state-server/graph"
)

// run is the instance's single-writer event loop. It owns current state
// and data exclusively; everything else in the process talks to it
// through the mailbox.
func (s *Server) run(arg any, started chan<- error) {
	signaled := false
	signal := func(err error) {
		if !signaled {
			signaled = true
			started <- err
		}
	}
	initialized := false

	defer func() {
		if r := recover(); r != nil {
			err := panicError(r)
			s.logger.Error("state server crashed",
				"id", s.id, "state", string(s.current), "error", err)
			s.stopReason = err
		}
		if initialized {
			if h := s.res.terminate(s.current); h != nil {
				s.invokeTerminate(h)
			}
			s.hooks.stop(s.stopReason)
		}
		s.timers.stopAll()
		names.release(s.name, s)
		// Reaching here unsignaled means init itself failed; the start
		// error is whatever reason the failure recorded.
		signal(s.stopReason)
		close(s.done)
	}()

	ires := InitOK(arg)
	if s.res.top.Init != nil {
		ires = s.res.top.Init(arg)
	}
	switch ires.kind {
	case initIgnore:
		s.stopReason = ErrIgnore
		return
	case initStop:
		if ires.reason == nil {
			ires.reason = errors.New("init requested stop")
		}
		s.stopReason = ires.reason
		return
	}

	s.data = ires.data
	s.current = s.graph.Initial()

	// A leading Goto overrides the declared initial state.
	ds := ires.directives
	if len(ds) > 0 {
		if g, ok := ds[0].(gotoDirective); ok {
			if !s.graph.Contains(g.dest) {
				s.stopReason = &RuntimeError{
					Code:    ErrCodeInvalidGoto,
					Message: "init goto targets undeclared state",
					State:   g.dest,
				}
				return
			}
			s.current = g.dest
			ds = ds[1:]
		}
	}

	initialized = true
	signal(nil)
	s.hooks.start(s.id)

	// The initial entry callback runs first; startup directives apply
	// after it, so a timer armed from init survives the entry's
	// state-timer reset and startup events queue ahead of anything
	// external.
	s.enterState("", NoTransition, s.current)
	if !s.stopping {
		s.processDirectives(ds, listRestricted)
	}

	for !s.stopping {
		s.dispatch(s.next())
	}
}

// next takes the internally scheduled follow-up events strictly before
// the external mailbox. This is the documented mailbox discipline:
// FIFO within each source, follow-ups of a dispatch ahead of external
// events not yet taken.
func (s *Server) next() event {
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev
	}
	return <-s.mailbox
}

// dispatch processes exactly one event to completion.
func (s *Server) dispatch(ev event) {
	// Introspection is a debug tap: it must not perturb timers or hooks.
	if ev.kind == evIntrospect {
		ev.snap <- snapshot{state: s.current, data: s.data}
		return
	}

	// Timer validity gates. A stale generation means the timer was
	// cancelled after firing; drop it silently. Every event other than
	// the event-scoped timer's own valid firing cancels that timer.
	switch ev.kind {
	case evEventTimeout:
		if !s.timers.takeEvent(ev.gen) {
			return
		}
	case evStateTimeout:
		if !s.timers.takeState(ev.gen) {
			return
		}
		s.timers.disarmEvent()
	case evNamedTimeout:
		if !s.timers.takeNamed(ev.name, ev.gen) {
			return
		}
		s.timers.disarmEvent()
	default:
		s.timers.disarmEvent()
	}

	s.hooks.event(ev.kind)

	switch ev.kind {
	case evCall:
		primary, shim := s.res.callPair(s.current)
		if primary == nil {
			s.missingHandler("HandleCall")
		}
		res := primary(ev.payload, ev.from, s.current, s.data)
		if res.kind == resDefer {
			if shim == nil {
				s.missingHandler("HandleCall")
			}
			prefix := s.applyDeferPrefix(res.directives)
			res = prepend(prefix, shim(ev.payload, ev.from, s.current, s.data))
		}
		s.applyResult(res, ev)

	case evCast:
		primary, shim := s.res.castPair(s.current)
		s.dispatchPayload(ev, "HandleCast", primary, shim)

	case evInfo:
		primary, shim := s.res.infoPair(s.current)
		s.dispatchPayload(ev, "HandleInfo", primary, shim)

	case evInternal:
		primary, shim := s.res.internalPair(s.current)
		s.dispatchPayload(ev, "HandleInternal", primary, shim)

	case evContinue:
		primary, shim := s.res.continuePair(s.current)
		s.dispatchPayload(ev, "HandleContinue", primary, shim)

	case evEventTimeout, evStateTimeout, evNamedTimeout:
		primary, shim := s.res.timeoutPair(s.current)
		s.dispatchPayload(ev, "HandleTimeout", primary, shim)

	case evTransition:
		s.runTransition(ev.tr)

	case evGoto:
		if !s.graph.Contains(ev.dest) {
			panic(&RuntimeError{
				Code:    ErrCodeInvalidGoto,
				Message: "goto targets undeclared state",
				State:   ev.dest,
			})
		}
		s.enterState(s.current, NoTransition, ev.dest)

	case evUpdate:
		s.data = ev.payload

	case evStop:
		s.beginStop(ev.reason)
	}
}

// dispatchPayload serves the cast/info/internal/continue/timeout kinds,
// which share a handler shape. A missing handler is fatal except for
// info events, which are logged and tolerated.
func (s *Server) dispatchPayload(ev event, kindName string, primary, shim PayloadHandler) {
	if primary == nil {
		s.unhandled(ev, kindName)
		return
	}
	res := primary(ev.payload, s.current, s.data)
	if res.kind == resDefer {
		prefix := s.applyDeferPrefix(res.directives)
		if shim == nil {
			s.unhandled(ev, kindName)
			// The deferral-supplied events still apply (info only;
			// anything else has already crashed).
			s.applyResult(NoReply(prefix...), ev)
			return
		}
		res = prepend(prefix, shim(ev.payload, s.current, s.data))
	}
	s.applyResult(res, ev)
}

// unhandled applies the per-kind default for an event nobody handles.
func (s *Server) unhandled(ev event, kindName string) {
	if ev.kind == evInfo {
		s.logger.Warn("unhandled info message",
			"id", s.id, "state", string(s.current),
			"payload_type", fmt.Sprintf("%T", ev.payload))
		return
	}
	s.missingHandler(kindName)
}

// missingHandler crashes the instance: a dispatched event with no
// handler is a definition bug, not a degraded-but-valid condition.
func (s *Server) missingHandler(kindName string) {
	panic(&RuntimeError{
		Code:    ErrCodeMissingHandler,
		Message: fmt.Sprintf("no %s defined for dispatched event", kindName),
		State:   s.current,
	})
}

// applyResult interprets a normalized handler result: reply, follow-up
// directives, or stop. Defer has been flattened by the caller.
func (s *Server) applyResult(res Result, origin event) {
	switch res.kind {
	case resReply:
		if !origin.from.valid() {
			panic(&RuntimeError{
				Code:    ErrCodeForbiddenResult,
				Message: "Reply returned for an event with no caller",
				State:   s.current,
			})
		}
		origin.from.deliver(res.reply)
		s.processDirectives(res.directives, listNormal)

	case resNoReply:
		s.processDirectives(res.directives, listNormal)

	case resStop:
		if res.hasReply && origin.from.valid() {
			origin.from.deliver(res.reply)
		}
		if res.hasData {
			s.data = res.data
		}
		s.beginStop(res.reason)

	case resCancel:
		panic(&RuntimeError{
			Code:    ErrCodeForbiddenResult,
			Message: "Cancel returned outside a transition handler",
			State:   s.current,
		})
	}
}

// applyDeferPrefix implements the defer reordering rule: a leading
// [Transition, Update] or [Update] in the deferred directives has its
// update applied immediately, so the delegated handler observes
// post-update data. The Transition stays at the head of the returned
// prefix and gets atomic treatment once the combined list is processed.
func (s *Server) applyDeferPrefix(ds []Directive) []Directive {
	if len(ds) == 0 {
		return ds
	}
	if _, ok := ds[0].(transitionDirective); ok {
		if len(ds) > 1 {
			if u, ok := ds[1].(updateDirective); ok {
				s.data = u.data
				out := make([]Directive, 0, len(ds)-1)
				out = append(out, ds[0])
				return append(out, ds[2:]...)
			}
		}
		return ds
	}
	if u, ok := ds[0].(updateDirective); ok {
		s.data = u.data
		return ds[1:]
	}
	return ds
}

// prepend splices deferral-supplied directives ahead of the delegated
// handler's own.
func prepend(prefix []Directive, res Result) Result {
	if res.kind == resDefer {
		panic(&RuntimeError{
			Code:    ErrCodeForbiddenResult,
			Message: "state-scoped handler returned Defer",
		})
	}
	if len(prefix) == 0 {
		return res
	}
	combined := make([]Directive, 0, len(prefix)+len(res.directives))
	combined = append(combined, prefix...)
	combined = append(combined, res.directives...)
	res.directives = combined
	return res
}

// listMode controls which directives a result list may carry.
type listMode int

const (
	// listNormal: a leading Transition (optionally followed by an
	// Update), or a leading Update, applies atomically in this
	// dispatch; everything else is scheduled.
	listNormal listMode = iota

	// listRestricted additionally forbids Transition and Goto anywhere:
	// entry callbacks, cancel results, and init may not redirect state.
	listRestricted

	// listScheduled permits Transition and Goto but never atomically: a
	// transition handler's proceed extras become follow-up events, since
	// one transition is already in flight.
	listScheduled
)

// processDirectives interprets a result's directive list.
//
// Head-of-list rule: only [Transition, Update, ...rest],
// [Transition, ...rest] and [Update, ...rest] receive atomic same-tick
// application. Anything else - including the reversed
// [Update, Transition] - is converted into scheduled follow-up events
// that re-enter the dispatch pipeline on later iterations.
func (s *Server) processDirectives(ds []Directive, mode listMode) {
	if len(ds) == 0 {
		return
	}
	rest := ds
	if t, ok := ds[0].(transitionDirective); ok && mode == listNormal {
		rest = ds[1:]
		if len(rest) > 0 {
			if u, ok := rest[0].(updateDirective); ok {
				s.data = u.data
				rest = rest[1:]
			}
		}
		s.scheduleAll(rest, mode)
		s.runTransition(t.tr)
		return
	}
	if u, ok := ds[0].(updateDirective); ok {
		s.data = u.data
		rest = ds[1:]
	}
	s.scheduleAll(rest, mode)
}

// scheduleAll converts the non-atomic remainder of a directive list:
// event-like directives join the follow-up queue; timer directives arm
// immediately.
func (s *Server) scheduleAll(ds []Directive, mode listMode) {
	for _, d := range ds {
		switch d := d.(type) {
		case transitionDirective:
			if mode == listRestricted {
				panic(&RuntimeError{
					Code:       ErrCodeForbiddenDirective,
					Message:    "Transition directive not permitted in this context",
					State:      s.current,
					Transition: d.tr,
				})
			}
			s.pending = append(s.pending, event{kind: evTransition, tr: d.tr})
		case gotoDirective:
			if mode == listRestricted {
				panic(&RuntimeError{
					Code:    ErrCodeForbiddenDirective,
					Message: "Goto directive not permitted in this context",
					State:   s.current,
				})
			}
			s.pending = append(s.pending, event{kind: evGoto, dest: d.dest})
		case updateDirective:
			s.pending = append(s.pending, event{kind: evUpdate, payload: d.data})
		case internalDirective:
			s.pending = append(s.pending, event{kind: evInternal, payload: d.payload})
		case continueDirective:
			s.pending = append(s.pending, event{kind: evContinue, payload: d.payload})
		case eventTimeoutDirective:
			s.timers.armEvent(d.duration, d.payload)
		case stateTimeoutDirective:
			s.timers.armState(d.duration, d.payload)
		case namedTimeoutDirective:
			s.timers.armNamed(d.name, d.duration, d.payload)
		}
	}
}

// runTransition is the transition pipeline: resolve the destination,
// give the transition handler a chance to cancel, then advance and run
// the entry pipeline.
func (s *Server) runTransition(tr graph.Transition) {
	from := s.current
	dest, ok := s.graph.Resolve(from, tr)
	if !ok {
		panic(&RuntimeError{
			Code:       ErrCodeInvalidTransition,
			Message:    "transition not declared from current state",
			State:      from,
			Transition: tr,
		})
	}

	res := NoReply()
	primary, shim := s.res.transitionPair(from)
	if primary != nil {
		res = primary(from, tr, s.data)
	}
	if res.kind == resDefer {
		prefix := s.applyDeferPrefix(res.directives)
		inner := NoReply()
		if shim != nil {
			inner = shim(from, tr, s.data)
		}
		res = prepend(prefix, inner)
	}

	switch res.kind {
	case resCancel:
		// Abort: stay in the current state. Extra directives still
		// apply, but may not smuggle in another state change.
		s.processDirectives(res.directives, listRestricted)

	case resNoReply:
		s.processDirectives(res.directives, listScheduled)
		s.enterState(from, tr, dest)

	case resStop:
		if res.hasData {
			s.data = res.data
		}
		s.beginStop(res.reason)

	default:
		panic(&RuntimeError{
			Code:       ErrCodeForbiddenResult,
			Message:    "transition handler must return NoReply, Cancel, Defer, or Stop",
			State:      from,
			Transition: tr,
		})
	}
}

// enterState establishes dest as the current state and runs the entry
// pipeline. Every entry - transition (including repeat-in-place), goto,
// init - cancels the outstanding state-scoped timer.
func (s *Server) enterState(from graph.State, tr graph.Transition, dest graph.State) {
	s.current = dest
	s.timers.disarmState()
	s.hooks.transition(from, tr, dest)
	s.entryPipeline(tr, dest)
}

// entryPipeline invokes the entry callback with the transition that got
// us here (NoTransition for goto/init). The callback's directive list
// is restricted: a state entry cannot be cancelled or redirected from
// within the entry callback - that belongs to the transition handler.
//
// Defer here is a double hit, not a handoff: the state-scoped entry
// callback runs in addition to (after) the top-level one.
func (s *Server) entryPipeline(tr graph.Transition, state graph.State) {
	primary, shim := s.res.entryPair(state)
	if primary == nil {
		return
	}

	res := primary(tr, state, s.data)
	switch res.kind {
	case resNoReply:
		s.processDirectives(res.directives, listRestricted)

	case resDefer:
		prefix := s.applyDeferPrefix(res.directives)
		s.scheduleAll(prefix, listRestricted)
		if shim == nil {
			return
		}
		inner := shim(tr, state, s.data)
		switch inner.kind {
		case resNoReply:
			s.processDirectives(inner.directives, listRestricted)
		case resStop:
			if inner.hasData {
				s.data = inner.data
			}
			s.beginStop(inner.reason)
		default:
			s.forbiddenEntryResult(state)
		}

	case resStop:
		if res.hasData {
			s.data = res.data
		}
		s.beginStop(res.reason)

	default:
		s.forbiddenEntryResult(state)
	}
}

func (s *Server) forbiddenEntryResult(state graph.State) {
	panic(&RuntimeError{
		Code:    ErrCodeForbiddenResult,
		Message: "entry callback must return NoReply, Defer, or Stop",
		State:   state,
	})
}

// beginStop flips the loop into its terminating state; the terminate
// hook runs as the loop unwinds.
func (s *Server) beginStop(reason error) {
	s.stopping = true
	s.stopReason = reason
}

// invokeTerminate shields the unwind path from a panicking terminate
// hook; its return value (and its panic) cannot veto termination.
func (s *Server) invokeTerminate(h TerminateHandler) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("terminate callback panicked",
				"id", s.id, "state", string(s.current), "panic", fmt.Sprint(r))
		}
	}()
	h(s.stopReason, s.current, s.data)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
