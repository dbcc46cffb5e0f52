package stateserver

import (
	"log/slog"
	"time"
)

// DefaultCallTimeout bounds Call when no per-server or per-call timeout
// is given.
const DefaultCallTimeout = 5 * time.Second

// defaultMailboxSize buffers externally submitted events. The mailbox
// is FIFO; a full mailbox applies backpressure to senders rather than
// dropping.
const defaultMailboxSize = 1024

// Option configures a server instance at start.
type Option func(*Server)

// WithName registers the instance in the process-local registry.
// Start fails with ErrNameTaken if the name is already claimed.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCallTimeout sets the default timeout applied by Call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.callTimeout = d
	}
}

// WithMailboxSize sets the external mailbox buffer size.
func WithMailboxSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.mailbox = make(chan event, n)
		}
	}
}

// WithHooks attaches lifecycle observers (see Hooks).
func WithHooks(h Hooks) Option {
	return func(s *Server) {
		s.hooks = h
	}
}

// WithIdentity overrides the instance identifier generator. Tests use
// NewFixedGenerator for deterministic identifiers.
func WithIdentity(g Generator) Option {
	return func(s *Server) {
		s.ident = g
	}
}
