// Package stateserver implements a state-machine-first actor runtime: a
// long-lived server that owns a current state from an immutable
// declared state graph plus arbitrary associated data, and processes a
// strictly serialized stream of events by dispatching to user handler
// callbacks.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Each server instance runs exactly one goroutine that owns
// current state and data. All mutation happens inside that loop; external
// callers only ever submit events. This ensures:
//   - Predictable handler invocation order
//   - No locking in user handlers
//   - Simple reasoning about state changes
//
// Event Processing Flow:
//  1. Events arrive via Call/Cast/Send, timers, or handler follow-ups
//  2. The loop takes one event at a time: internally scheduled follow-up
//     events first, then the external FIFO mailbox
//  3. The handler for (event kind, current state) runs to completion
//  4. Its declarative Result is interpreted: reply, data update, state
//     transition, follow-up events, timers, or stop
//  5. Every state entry (transition, goto, startup) runs the entry
//     callback pipeline before the next event is taken
//
// Handlers must not block: the loop's only suspension point is waiting
// for the next event, so a blocking handler stalls the whole instance.
// Long work belongs in a Continue/Internal chain or a separate goroutine
// whose completion is delivered back with Send.
//
// Failure isolation is per instance: programmer errors (invalid
// transition, missing handler, forbidden directive) crash the single
// owning instance, never the process. Unrecognized out-of-band messages
// are the one tolerated case - logged and ignored.
package stateserver
