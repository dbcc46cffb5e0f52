package stateserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ityonemo/state-server/graph"
)

// observed records what a follow-up handler observed at dispatch time.
type observed struct {
	state graph.State
	data  any
}

func TestDirectives_HeadTransitionUpdateIsAtomic(t *testing.T) {
	seen := make(chan observed, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("flip"), Update("after"), Internal("check"))
			},
			HandleInternal: func(_ any, state graph.State, data any) Result {
				seen <- observed{state: state, data: data}
				return NoReply()
			},
		},
	}
	s, err := Start(def, "before")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))

	// The internal event runs after the transition completed and the
	// update applied: both were at the head of the list.
	got := <-seen
	assert.Equal(t, graph.State("on"), got.state)
	assert.Equal(t, "after", got.data)
}

func TestCall_AtomicReplyTransitionUpdate(t *testing.T) {
	g := graph.MustNew(
		graph.Def("off", graph.To("flip", "on")),
		graph.Def("on", graph.To("flip", "off")),
	)
	def := Definition{
		Graph: g,
		Callbacks: Callbacks{
			HandleCall: func(_ any, _ From, _ graph.State, data any) Result {
				return Reply("foo", Transition("flip"), Update(data.(int)+1))
			},
		},
	}
	s, err := Start(def, 0)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	reply, err := s.Call("flip")
	require.NoError(t, err)
	assert.Equal(t, "foo", reply)

	// Both effects of the head pair landed in the same dispatch: any
	// observation after the call sees the new state with the new data,
	// never one without the other.
	state, data, err := s.Introspect()
	require.NoError(t, err)
	assert.Equal(t, graph.State("on"), state)
	assert.Equal(t, 1, data)

	_, err = s.Call("flip")
	require.NoError(t, err)
	state, data, err = s.Introspect()
	require.NoError(t, err)
	assert.Equal(t, graph.State("off"), state)
	assert.Equal(t, 2, data)
}

func TestDirectives_ReversedUpdateTransitionIsNotAtomic(t *testing.T) {
	seen := make(chan observed, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				// Update at the head applies now, but the transition is a
				// scheduled follow-up: the internal between them observes the
				// pre-transition state.
				return NoReply(Update("after"), Internal("check"), Transition("flip"))
			},
			HandleInternal: func(_ any, state graph.State, data any) Result {
				seen <- observed{state: state, data: data}
				return NoReply()
			},
		},
	}
	s, err := Start(def, "before")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))

	got := <-seen
	assert.Equal(t, graph.State("off"), got.state)
	assert.Equal(t, "after", got.data)

	// The scheduled transition still lands afterwards.
	mustState(t, s, "on")
}

func TestDirectives_MidListTransitionIsScheduled(t *testing.T) {
	seen := make(chan observed, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Internal("check"), Transition("flip"))
			},
			HandleInternal: func(_ any, state graph.State, _ any) Result {
				seen <- observed{state: state}
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))
	assert.Equal(t, graph.State("off"), (<-seen).state)
	mustState(t, s, "on")
}

func TestDirectives_GotoSkipsTransitionHandler(t *testing.T) {
	entries := make(chan graph.Transition, 2)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Goto("done"))
			},
			HandleTransition: func(graph.State, graph.Transition, any) Result {
				t.Error("transition handler must not run for Goto")
				return NoReply()
			},
			OnStateEntry: func(tr graph.Transition, state graph.State, _ any) Result {
				if state == "done" {
					entries <- tr
				}
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))
	assert.Equal(t, NoTransition, <-entries)
	mustState(t, s, "done")
}

func TestDirectives_InvalidTransitionCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("shutdown")) // not declared from "off"
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("go"))
	waitDone(t, s)
	assert.True(t, IsInvalidTransition(s.Err()))
	assert.False(t, s.Alive())
}

func TestDirectives_UndeclaredGotoCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Goto("limbo"))
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("go"))
	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeInvalidGoto, re.Code)
}

func TestTransitionHandler_CancelStaysInState(t *testing.T) {
	internals := make(chan string, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("flip"))
			},
			HandleTransition: func(_ graph.State, _ graph.Transition, _ any) Result {
				return Cancel(Internal("vetoed"))
			},
			HandleInternal: func(payload any, _ graph.State, _ any) Result {
				internals <- payload.(string)
				return NoReply()
			},
			OnStateEntry: func(tr graph.Transition, _ graph.State, _ any) Result {
				if tr != NoTransition {
					t.Error("entry callback must not run for a cancelled transition")
				}
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))
	assert.Equal(t, "vetoed", <-internals)
	mustState(t, s, "off")
}

func TestTransitionHandler_ProceedExtrasMayScheduleTransition(t *testing.T) {
	seen := make(chan observed, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("flip"))
			},
			HandleTransition: func(_ graph.State, tr graph.Transition, _ any) Result {
				if tr == "flip" {
					// A proceed result may carry further transitions; they
					// become follow-up events behind the one in flight.
					return NoReply(Internal("note"), Transition("shutdown"))
				}
				return NoReply()
			},
			HandleInternal: func(payload any, state graph.State, _ any) Result {
				seen <- observed{state: state, data: payload}
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))

	// The internal runs in the state the flip landed in, then the
	// scheduled shutdown takes effect.
	got := <-seen
	assert.Equal(t, graph.State("on"), got.state)
	assert.Equal(t, "note", got.data)
	mustState(t, s, "done")
}

func TestTransitionHandler_CancelWithTransitionCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("flip"))
			},
			HandleTransition: func(graph.State, graph.Transition, any) Result {
				return Cancel(Transition("flip")) // no smuggled state change
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("go"))
	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenDirective, re.Code)
}

func TestTransitionHandler_StopShortCircuits(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("flip"))
			},
			HandleTransition: func(graph.State, graph.Transition, any) Result {
				return Stop(nil)
			},
			OnStateEntry: func(tr graph.Transition, _ graph.State, _ any) Result {
				if tr != NoTransition {
					t.Error("entry callback must not run when the transition stopped")
				}
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("go"))
	waitDone(t, s)
	assert.NoError(t, s.Err())
}

func TestEntryCallback_TransitionDirectiveCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			OnStateEntry: func(graph.Transition, graph.State, any) Result {
				return NoReply(Transition("flip"))
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenDirective, re.Code)
}

func TestEntryCallback_ReplyResultCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			OnStateEntry: func(graph.Transition, graph.State, any) Result {
				return Reply("nonsense")
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenResult, re.Code)
}

func TestEntryCallback_RepeatTransitionReenters(t *testing.T) {
	g := graph.MustNew(
		graph.Def("spinning", graph.To("again", "spinning")),
	)
	entries := make(chan graph.Transition, 2)
	def := Definition{
		Graph: g,
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return NoReply(Transition("again"))
			},
			OnStateEntry: func(tr graph.Transition, _ graph.State, _ any) Result {
				entries <- tr
				return NoReply()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	assert.Equal(t, NoTransition, <-entries)
	require.NoError(t, s.Cast("go"))
	assert.Equal(t, graph.Transition("again"), <-entries)
}

func TestDefer_CallTrampolinesToScopedHandler(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCall: func(any, From, graph.State, any) Result {
				return Defer(Update("pre-delegation"))
			},
		},
		States: map[graph.State]StateCallbacks{
			"off": {
				HandleCall: func(_ any, _ From, _ graph.State, data any) Result {
					// The deferral's leading update is visible already.
					return Reply(data)
				},
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	reply, err := s.Call("x")
	require.NoError(t, err)
	assert.Equal(t, "pre-delegation", reply)
}

func TestDefer_TransitionPrefixStaysAtomic(t *testing.T) {
	seen := make(chan observed, 1)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return Defer(Transition("flip"), Update("deferred"))
			},
			HandleInternal: func(_ any, state graph.State, data any) Result {
				seen <- observed{state: state, data: data}
				return NoReply()
			},
		},
		States: map[graph.State]StateCallbacks{
			"off": {
				HandleCast: func(_ any, state graph.State, data any) Result {
					// Delegation happens before the transition runs, but
					// after the prefix update.
					assert.Equal(t, graph.State("off"), state)
					assert.Equal(t, "deferred", data)
					return NoReply(Internal("check"))
				},
			},
		},
	}
	s, err := Start(def, "initial")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	require.NoError(t, s.Cast("go"))

	// Combined list is [Transition, Internal]: transition at the head is
	// atomic, the internal runs after the state change.
	got := <-seen
	assert.Equal(t, graph.State("on"), got.state)
	assert.Equal(t, "deferred", got.data)
}

func TestDefer_MissingScopedCastHandlerCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return Defer()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("x"))
	waitDone(t, s)
	assert.True(t, IsMissingHandler(s.Err()))
}

func TestDefer_ScopedHandlerMayNotDefer(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result { return Defer() },
		},
		States: map[graph.State]StateCallbacks{
			"off": {
				HandleCast: func(any, graph.State, any) Result { return Defer() },
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("x"))
	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenResult, re.Code)
}

func TestDefer_EntryDoubleDispatch(t *testing.T) {
	order := make(chan string, 4)
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			OnStateEntry: func(_ graph.Transition, state graph.State, _ any) Result {
				order <- "top:" + string(state)
				return Defer()
			},
		},
		States: map[graph.State]StateCallbacks{
			"off": {
				OnStateEntry: func(_ graph.Transition, state graph.State, _ any) Result {
					order <- "scoped:" + string(state)
					return NoReply()
				},
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	// Opt-in double hit: top-level first, then the state-scoped one.
	assert.Equal(t, "top:off", <-order)
	assert.Equal(t, "scoped:off", <-order)
}

func TestDefer_EntryWithoutScopedHandlerIsQuiet(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			OnStateEntry: func(graph.Transition, graph.State, any) Result {
				return Defer(Update("from-entry"))
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	// No scoped entry callback exists: the defer degrades to its own
	// directive prefix and nothing crashes.
	_, data, err := s.Introspect()
	require.NoError(t, err)
	assert.Equal(t, "from-entry", data)
}

func TestScopedFallthrough_UsedWhenTopLevelAbsent(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		States: map[graph.State]StateCallbacks{
			"off": {
				HandleCall: func(any, From, graph.State, any) Result {
					return Reply("scoped answer")
				},
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	reply, err := s.Call("x")
	require.NoError(t, err)
	assert.Equal(t, "scoped answer", reply)
}

func TestReply_FromNonCallEventCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return Reply("nobody asked")
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("x"))
	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenResult, re.Code)
}

func TestCancel_OutsideTransitionHandlerCrashes(t *testing.T) {
	def := Definition{
		Graph: toggleGraph(),
		Callbacks: Callbacks{
			HandleCast: func(any, graph.State, any) Result {
				return Cancel()
			},
		},
	}
	s, err := Start(def, nil)
	require.NoError(t, err)

	require.NoError(t, s.Cast("x"))
	waitDone(t, s)

	var re *RuntimeError
	require.ErrorAs(t, s.Err(), &re)
	assert.Equal(t, ErrCodeForbiddenResult, re.Code)
}
