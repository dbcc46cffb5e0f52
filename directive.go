package stateserver

import (
	"time"

	"github.com/ityonemo/state-server/graph"
)

// Never disarms a previously armed timer when passed as a timeout
// duration.
const Never time.Duration = -1

// NoTransition is the transition name passed to OnStateEntry when the
// state was established without a declared transition: at startup or via
// a Goto override.
const NoTransition graph.Transition = ""

// Directive is one element of a handler result's event list. Directives
// are a closed set; user code builds them with the constructors below.
//
// Placement matters. A Transition directive at the head of the list
// (optionally followed immediately by an Update) and an Update directive
// at the head are applied synchronously within the current dispatch.
// Every other placement is converted into a scheduled follow-up event
// processed on a later loop iteration. See Result for details.
type Directive interface {
	isDirective()
}

type transitionDirective struct {
	tr graph.Transition
}

type gotoDirective struct {
	dest graph.State
}

type updateDirective struct {
	data any
}

type internalDirective struct {
	payload any
}

type continueDirective struct {
	payload any
}

type eventTimeoutDirective struct {
	duration time.Duration
	payload  any
}

type stateTimeoutDirective struct {
	duration time.Duration
	payload  any
}

type namedTimeoutDirective struct {
	name     string
	duration time.Duration
	payload  any
}

func (transitionDirective) isDirective()   {}
func (gotoDirective) isDirective()         {}
func (updateDirective) isDirective()       {}
func (internalDirective) isDirective()     {}
func (continueDirective) isDirective()     {}
func (eventTimeoutDirective) isDirective() {}
func (stateTimeoutDirective) isDirective() {}
func (namedTimeoutDirective) isDirective() {}

// Transition requests following the named transition out of the current
// state. Requesting a transition the graph does not declare crashes the
// instance.
func Transition(tr graph.Transition) Directive {
	return transitionDirective{tr: tr}
}

// Goto requests a direct state override. The transition handler is
// skipped; the entry callback still runs, with NoTransition. An
// undeclared destination crashes the instance.
func Goto(dest graph.State) Directive {
	return gotoDirective{dest: dest}
}

// Update replaces the instance data.
func Update(data any) Directive {
	return updateDirective{data: data}
}

// Internal schedules a follow-up event consumed by HandleInternal.
func Internal(payload any) Directive {
	return internalDirective{payload: payload}
}

// Continue schedules a follow-up event consumed by HandleContinue.
// Behaviorally identical to Internal; conventionally used for
// GenServer-style post-init or post-reply continuations.
func Continue(payload any) Directive {
	return continueDirective{payload: payload}
}

// EventTimeout arms the event-scoped timer: it fires into HandleTimeout
// after d unless any other event reaches the instance first, which
// cancels it. Use for idle detection. At most one payload is used; with
// none the timer fires with a nil payload. A duration of Never (or any
// d <= 0) disarms.
func EventTimeout(d time.Duration, payload ...any) Directive {
	return eventTimeoutDirective{duration: d, payload: first(payload)}
}

// StateTimeout arms the state-scoped timer: it survives event traffic
// but is cancelled whenever the current state is re-established, via
// transition (including repeat-in-place) or Goto. At most one
// state-scoped timer is outstanding; re-arming replaces it. A duration
// of Never (or any d <= 0) disarms.
func StateTimeout(d time.Duration, payload ...any) Directive {
	return stateTimeoutDirective{duration: d, payload: first(payload)}
}

// NamedTimeout arms an independent named timer that persists across
// state changes until it fires or is re-armed; arming with Never
// disarms it. When it fires, HandleTimeout receives TimerName(name) if
// no payload was supplied, or a NamedTimeoutPayload otherwise.
func NamedTimeout(name string, d time.Duration, payload ...any) Directive {
	return namedTimeoutDirective{name: name, duration: d, payload: first(payload)}
}

func first(payload []any) any {
	if len(payload) == 0 {
		return nil
	}
	return payload[0]
}

// TimerName is delivered to HandleTimeout when a named timer armed
// without a payload fires.
type TimerName string

// NamedTimeoutPayload is delivered to HandleTimeout when a named timer
// armed with a payload fires.
type NamedTimeoutPayload struct {
	Name    string
	Payload any
}
