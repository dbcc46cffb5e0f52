package stateserver

import (
	"github.com/ityonemo/state-server/graph"
)

// eventKind distinguishes the event classes the loop dispatches on.
type eventKind int

const (
	evCall eventKind = iota + 1
	evCast
	evInfo
	evInternal
	evContinue
	evTransition
	evGoto
	evUpdate
	evEventTimeout
	evStateTimeout
	evNamedTimeout
	evStop
	evIntrospect
)

// String returns the kind name as surfaced to lifecycle hooks and logs.
func (k eventKind) String() string {
	switch k {
	case evCall:
		return "call"
	case evCast:
		return "cast"
	case evInfo:
		return "info"
	case evInternal:
		return "internal"
	case evContinue:
		return "continue"
	case evTransition:
		return "transition"
	case evGoto:
		return "goto"
	case evUpdate:
		return "update"
	case evEventTimeout:
		return "event_timeout"
	case evStateTimeout:
		return "state_timeout"
	case evNamedTimeout:
		return "timeout"
	case evStop:
		return "stop"
	case evIntrospect:
		return "introspect"
	default:
		return "unknown"
	}
}

// event is one entry in the mailbox or the internal follow-up queue.
// Events are ephemeral and consumed exactly once.
type event struct {
	kind    eventKind
	payload any

	from From             // evCall only
	tr   graph.Transition // evTransition only
	dest graph.State      // evGoto only
	name string           // evNamedTimeout only

	// gen stamps timer events with the generation they were armed under;
	// a stale generation at delivery time means the timer was cancelled.
	gen uint64

	reason error           // evStop only
	snap   chan<- snapshot // evIntrospect only
}

// snapshot is the debug-only introspection view of an instance.
type snapshot struct {
	state graph.State
	data  any
}
