package stateserver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ityonemo/state-server/graph"
)

// lockData is the instance data for the coded-lock machine below.
type lockData struct {
	code    string
	entered string
	failed  int
}

// lockGraph models a keypad lock: digits accumulate in "locked", the
// right code opens it, three failures jam it for good.
func lockGraph() *graph.Graph {
	return graph.MustNew(
		graph.Def("locked",
			graph.To("open", "unlocked"),
			graph.To("jam", "jammed"),
		),
		graph.Def("unlocked",
			graph.To("lock", "locked"),
		),
		graph.Def("jammed"),
	)
}

type pressDigit string

type lockUp struct{}

func lockDefinition() Definition {
	return Definition{
		Graph: lockGraph(),
		Callbacks: Callbacks{
			Init: func(arg any) InitResult {
				return InitOK(lockData{code: arg.(string)})
			},
			HandleCall: func(req any, _ From, state graph.State, data any) Result {
				d := data.(lockData)
				switch req.(type) {
				case lockUp:
					if state != "unlocked" {
						return Reply(errors.New("not open"))
					}
					return Reply(nil, Transition("lock"))
				default:
					return Reply(d.failed)
				}
			},
			HandleCast: func(payload any, state graph.State, data any) Result {
				digit, ok := payload.(pressDigit)
				if !ok || state != "locked" {
					return NoReply()
				}
				d := data.(lockData)
				d.entered += string(digit)
				if len(d.entered) < len(d.code) {
					// Abandon a half-typed code after a quiet period.
					return NoReply(Update(d), EventTimeout(40*time.Millisecond, "reset"))
				}
				if d.entered == d.code {
					d.entered = ""
					return NoReply(Transition("open"), Update(d))
				}
				d.entered = ""
				d.failed++
				if d.failed >= 3 {
					return NoReply(Transition("jam"), Update(d))
				}
				return NoReply(Update(d))
			},
			HandleTimeout: func(payload any, _ graph.State, data any) Result {
				if payload != "reset" {
					// Not ours; let the state-scoped handler take it.
					return Defer()
				}
				d := data.(lockData)
				d.entered = ""
				return NoReply(Update(d))
			},
		},
		States: map[graph.State]StateCallbacks{
			"unlocked": {
				OnStateEntry: func(_ graph.Transition, _ graph.State, data any) Result {
					// Auto-relock if left open.
					return NoReply(StateTimeout(60*time.Millisecond, "auto"))
				},
				HandleTimeout: func(payload any, _ graph.State, _ any) Result {
					if payload == "auto" {
						return NoReply(Transition("lock"))
					}
					return NoReply()
				},
			},
		},
	}
}

func punch(t *testing.T, s *Server, code string) {
	t.Helper()
	for _, c := range code {
		require.NoError(t, s.Cast(pressDigit(c)))
	}
}

func TestLock_CorrectCodeOpens(t *testing.T) {
	s, err := Start(lockDefinition(), "42")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	punch(t, s, "42")
	mustState(t, s, "unlocked")

	reply, err := s.Call(lockUp{})
	require.NoError(t, err)
	assert.Nil(t, reply)
	mustState(t, s, "locked")
}

func TestLock_AutoRelockFromStateTimer(t *testing.T) {
	s, err := Start(lockDefinition(), "42")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	punch(t, s, "42")
	mustState(t, s, "unlocked")

	// The scoped state timer relocks without any external traffic.
	require.Eventually(t, func() bool {
		state, _, err := s.Introspect()
		return err == nil && state == "locked"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLock_IdleTimerDropsPartialEntry(t *testing.T) {
	s, err := Start(lockDefinition(), "42")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	punch(t, s, "4")
	// Let the event-scoped timer clear the half-typed code.
	require.Eventually(t, func() bool {
		_, data, err := s.Introspect()
		return err == nil && data.(lockData).entered == ""
	}, 2*time.Second, 10*time.Millisecond)

	// The full code still works afterwards.
	punch(t, s, "42")
	mustState(t, s, "unlocked")
}

func TestLock_ThreeFailuresJam(t *testing.T) {
	s, err := Start(lockDefinition(), "42")
	require.NoError(t, err)
	defer func() { _ = s.Stop(nil) }()

	for i := 0; i < 3; i++ {
		punch(t, s, "99")
	}
	mustState(t, s, "jammed")
	assert.True(t, s.graph.IsTerminal("jammed"))

	// Digits in the terminal state are shrugged off.
	punch(t, s, "42")
	mustState(t, s, "jammed")

	reply, err := s.Call(lockUp{})
	require.NoError(t, err)
	assert.EqualError(t, reply.(error), "not open")
}
