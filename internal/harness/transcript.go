package harness

import (
	"fmt"
	"strings"
	"sync"

	stateserver "github.com/ityonemo/state-server"
	"github.com/ityonemo/state-server/graph"
)

// Transcript accumulates one line per observed lifecycle fact, in
// order. With a fixed identity generator the output is byte-stable, so
// transcripts compare well against golden files.
//
// Hook callbacks arrive from the instance's loop goroutine; recording
// is mutex-protected so the driving test can read concurrently.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

// Hooks returns the lifecycle hooks that feed this transcript.
func (tr *Transcript) Hooks() stateserver.Hooks {
	return stateserver.Hooks{
		OnStart: func(id string) {
			tr.add("start %s", id)
		},
		OnEvent: func(kind string) {
			tr.add("event %s", kind)
		},
		OnTransition: func(from graph.State, via graph.Transition, to graph.State) {
			if via == stateserver.NoTransition {
				tr.add("enter %s", to)
				return
			}
			tr.add("transition %s -[%s]-> %s", from, via, to)
		},
		OnStop: func(reason error) {
			if reason == nil {
				tr.add("stop ok")
				return
			}
			tr.add("stop error: %v", reason)
		},
	}
}

func (tr *Transcript) add(format string, args ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.lines = append(tr.lines, fmt.Sprintf(format, args...))
}

// Note records a caller-side line, interleaved with hook lines.
func (tr *Transcript) Note(format string, args ...any) {
	tr.add(format, args...)
}

// Lines returns a copy of the recorded lines.
func (tr *Transcript) Lines() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]string, len(tr.lines))
	copy(out, tr.lines)
	return out
}

// String renders the transcript, one line per fact, newline-terminated.
func (tr *Transcript) String() string {
	lines := tr.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
