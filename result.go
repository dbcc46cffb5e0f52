package stateserver

import "sync/atomic"

// resultKind identifies the closed set of handler result shapes.
type resultKind int

const (
	resNoReply resultKind = iota // zero Result means noreply
	resReply
	resDefer
	resStop
	resCancel
)

// Result is the declarative outcome of one handler dispatch. Handlers
// build Results with the constructors below and never mutate them; the
// engine interprets a Result into state mutation, follow-up events, and
// replies.
//
// The directive list follows the head-of-list rule: a leading
// Transition (optionally followed immediately by an Update), or a
// leading Update, is applied atomically within the current dispatch.
// Any other placement - including the reversed [Update, Transition] -
// is converted into separately scheduled follow-up events.
type Result struct {
	kind resultKind

	reply    any
	hasReply bool

	reason  error
	data    any
	hasData bool

	directives []Directive
}

// Reply completes the pending call with value and applies directives.
// Only meaningful from HandleCall.
func Reply(value any, directives ...Directive) Result {
	return Result{kind: resReply, reply: value, hasReply: true, directives: directives}
}

// NoReply applies directives without replying. A call handler returning
// NoReply must arrange for Server.Reply to be invoked later with the
// call's From token.
func NoReply(directives ...Directive) Result {
	return Result{kind: resNoReply, directives: directives}
}

// Defer delegates the current event to the state-scoped handler set for
// the current state. Supplied directives are prepended to whatever the
// state-scoped handler emits; a leading [Transition, Update] or [Update]
// prefix is applied before the delegated handler runs, so it observes
// post-update data. From OnStateEntry, Defer additionally invokes the
// state-scoped entry callback after the top-level one (opt-in
// double dispatch).
func Defer(directives ...Directive) Result {
	return Result{kind: resDefer, directives: directives}
}

// Stop terminates the instance with the given reason (nil for a normal
// stop). The terminate callback, if any, runs before the instance dies.
func Stop(reason error) Result {
	return Result{kind: resStop, reason: reason}
}

// StopWithReply completes the pending call with reply, then terminates.
func StopWithReply(reason error, reply any) Result {
	return Result{kind: resStop, reason: reason, reply: reply, hasReply: true}
}

// StopWithData replaces the instance data before terminating, so the
// terminate callback observes the final data.
func StopWithData(reason error, data any) Result {
	return Result{kind: resStop, reason: reason, data: data, hasData: true}
}

// Cancel aborts the pending transition. Valid only from
// HandleTransition: the instance stays in its current state, and the
// supplied directives are still applied (Transition and Goto are not
// permitted among them).
func Cancel(directives ...Directive) Result {
	return Result{kind: resCancel, directives: directives}
}

// From is the reply token of a pending call. It may be captured from a
// HandleCall invocation and used once - at any later time, from any
// dispatch - via Server.Reply. The engine does not detect a reply that
// never comes (the caller times out) nor a second reply (dropped).
type From struct {
	tok *replyToken
}

type replyToken struct {
	ch   chan any
	used atomic.Bool
}

func newFrom() From {
	return From{tok: &replyToken{ch: make(chan any, 1)}}
}

// deliver completes the call at most once. Extra replies are dropped.
func (f From) deliver(value any) {
	if f.tok == nil {
		return
	}
	if f.tok.used.CompareAndSwap(false, true) {
		f.tok.ch <- value
	}
}

// valid reports whether this From belongs to an actual call.
func (f From) valid() bool {
	return f.tok != nil
}

// initKind identifies the closed set of Init outcomes.
type initKind int

const (
	initOK initKind = iota
	initIgnore
	initStop
)

// InitResult is the outcome of the Init callback.
type InitResult struct {
	kind       initKind
	data       any
	directives []Directive
	reason     error
}

// InitOK accepts the start with the given initial data. Directives may
// include a leading Goto to override the graph's declared initial state,
// plus Internal/Continue events and timers to run after the initial
// entry callback. Transition directives are not meaningful before the
// first state is established and crash the start.
func InitOK(data any, directives ...Directive) InitResult {
	return InitResult{kind: initOK, data: data, directives: directives}
}

// InitIgnore declines the start without error; Start returns ErrIgnore.
func InitIgnore() InitResult {
	return InitResult{kind: initIgnore}
}

// InitStop aborts the start with reason; Start returns it as an error.
func InitStop(reason error) InitResult {
	return InitResult{kind: initStop, reason: reason}
}
