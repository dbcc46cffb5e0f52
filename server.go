package stateserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ityonemo/state-server/graph"
)

// Server is a handle to one running instance. Handles are safe for
// concurrent use from any goroutine; all operations funnel into the
// instance's serialized event loop.
type Server struct {
	id   string
	name string

	graph       *graph.Graph
	res         *resolver
	logger      *slog.Logger
	hooks       Hooks
	ident       Generator
	callTimeout time.Duration

	// mailbox carries externally submitted events, FIFO. pending is the
	// loop-private follow-up queue, drained ahead of the mailbox.
	mailbox chan event
	pending []event

	// current and data are owned exclusively by the loop goroutine.
	current graph.State
	data    any
	timers  *timerManager

	stopping   bool
	stopReason error // written by the loop before done closes
	done       chan struct{}
}

// Start creates and runs an instance of the given definition.
//
// The user Init callback runs on the instance's own loop goroutine
// before Start returns; its InitResult decides the initial data, an
// optional initial-state override, and optional startup directives. The
// entry callback fires for the initial state (with NoTransition) before
// any externally submitted event is processed.
//
// Start returns ErrIgnore when Init declines, the init reason when Init
// stops, ErrNameTaken for a duplicate registered name, and a
// construction error for a definition that binds handlers to undeclared
// states.
func Start(def Definition, arg any, opts ...Option) (*Server, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		graph:       def.Graph,
		res:         newResolver(def),
		logger:      slog.Default(),
		ident:       UUIDv7Generator{},
		callTimeout: DefaultCallTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailbox == nil {
		s.mailbox = make(chan event, defaultMailboxSize)
	}
	s.id = s.ident.Generate()
	s.timers = newTimerManager(s.sendTimer)

	if s.name != "" {
		if err := names.claim(s.name, s); err != nil {
			return nil, err
		}
	}

	started := make(chan error, 1)
	go s.run(arg, started)
	if err := <-started; err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the instance identifier.
func (s *Server) ID() string { return s.id }

// Name returns the registered name, empty if unregistered.
func (s *Server) Name() string { return s.name }

// Done is closed when the instance has fully terminated.
func (s *Server) Done() <-chan struct{} { return s.done }

// Alive reports whether the instance is still running.
func (s *Server) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Err returns the stop reason after termination: nil for a normal
// stop, the crash error otherwise. Returns nil while alive.
func (s *Server) Err() error {
	select {
	case <-s.done:
		return s.stopReason
	default:
		return nil
	}
}

// Call submits a synchronous request and blocks for the reply, bounded
// by the server's default call timeout.
func (s *Server) Call(req any) (any, error) {
	return s.CallTimeout(req, s.callTimeout)
}

// CallTimeout is Call with an explicit caller-side timeout. A timeout
// abandons the wait only; it does not stop engine-side processing, and
// a late reply is discarded.
func (s *Server) CallTimeout(req any, timeout time.Duration) (any, error) {
	from := newFrom()
	if err := s.enqueue(event{kind: evCall, payload: req, from: from}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-from.tok.ch:
		return v, nil
	case <-timer.C:
		return nil, ErrCallTimeout
	case <-s.done:
		// A reply may have raced the shutdown; prefer it.
		select {
		case v := <-from.tok.ch:
			return v, nil
		default:
		}
		return nil, s.deathErr()
	}
}

// Cast submits an asynchronous message for HandleCast. A nil return
// acknowledges enqueueing only; there is no processing guarantee.
func (s *Server) Cast(msg any) error {
	return s.enqueue(event{kind: evCast, payload: msg})
}

// Send delivers an out-of-band message, consumed by HandleInfo. This is
// the programmatic equivalent of a message arriving at the instance's
// address from anywhere.
func (s *Server) Send(msg any) error {
	return s.enqueue(event{kind: evInfo, payload: msg})
}

// Reply completes a pending call using the From token its HandleCall
// received. Usable at most once per token, from any goroutine, at any
// time after the call arrived. Extra replies are dropped; a reply that
// never comes leaves the caller to its timeout.
func (s *Server) Reply(from From, value any) {
	from.deliver(value)
}

// Stop requests a graceful termination with the given reason (nil for
// normal). The terminate callback runs before Done closes.
func (s *Server) Stop(reason error) error {
	return s.enqueue(event{kind: evStop, reason: reason})
}

// Introspect returns a snapshot of the current state and data.
//
// Debug only: it is serialized through the event loop like any request,
// but deliberately does not count as an event for timer-cancellation
// purposes and is invisible to hooks. Not part of the stable contract.
func (s *Server) Introspect() (graph.State, any, error) {
	snap := make(chan snapshot, 1)
	if err := s.enqueue(event{kind: evIntrospect, snap: snap}); err != nil {
		return "", nil, err
	}
	select {
	case sn := <-snap:
		return sn.state, sn.data, nil
	case <-s.done:
		return "", nil, s.deathErr()
	}
}

// enqueue places an event in the external mailbox, blocking for space
// (backpressure rather than drops). Fails once the instance is dead.
func (s *Server) enqueue(ev event) error {
	select {
	case <-s.done:
		return s.deathErr()
	default:
	}
	select {
	case s.mailbox <- ev:
		return nil
	case <-s.done:
		return s.deathErr()
	}
}

// sendTimer delivers a fired timer into the mailbox, giving up if the
// instance dies first.
func (s *Server) sendTimer(ev event) {
	select {
	case s.mailbox <- ev:
	case <-s.done:
	}
}

func (s *Server) deathErr() error {
	if s.stopReason != nil {
		return fmt.Errorf("%w: %w", ErrStopped, s.stopReason)
	}
	return ErrStopped
}
