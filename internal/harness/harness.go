package harness

import (
	"fmt"

	stateserver "github.com/ityonemo/state-server"
	"github.com/ityonemo/state-server/graph"
)

// Report is the outcome of one scenario run.
type Report struct {
	Scenario   string
	FinalState graph.State
	Transcript *Transcript
	Failures   []string
}

// Passed reports whether every step and expectation held.
func (r *Report) Passed() bool {
	return len(r.Failures) == 0
}

// walkRequest asks the walker to attempt one transition.
type walkRequest struct {
	tr graph.Transition
}

// walkerDefinition builds the generic instance the harness drives: a
// machine whose only behavior is taking the transitions it is asked to.
func walkerDefinition(g *graph.Graph) stateserver.Definition {
	return stateserver.Definition{
		Graph: g,
		Callbacks: stateserver.Callbacks{
			HandleCall: func(req any, _ stateserver.From, state graph.State, _ any) stateserver.Result {
				wr, ok := req.(walkRequest)
				if !ok {
					return stateserver.Reply(fmt.Errorf("unknown request %T", req))
				}
				if !g.IsValidTransition(state, wr.tr) {
					return stateserver.Reply(fmt.Errorf("no transition %q out of %q", wr.tr, state))
				}
				return stateserver.Reply(nil, stateserver.Transition(wr.tr))
			},
		},
	}
}

// Run drives the scenario against the graph and collects the report.
// Run itself errors only when the instance cannot start; script
// failures land in Report.Failures.
func Run(g *graph.Graph, sc *Scenario) (*Report, error) {
	transcript := &Transcript{}
	id := "run-scenario"
	if sc.Name != "" {
		id = "run-" + sc.Name
	}

	srv, err := stateserver.Start(walkerDefinition(g), nil,
		stateserver.WithHooks(transcript.Hooks()),
		stateserver.WithIdentity(stateserver.NewFixedGenerator(id)),
	)
	if err != nil {
		return nil, fmt.Errorf("starting walker: %w", err)
	}

	report := &Report{Scenario: sc.Name, Transcript: transcript}
	for i, step := range sc.Steps {
		reply, callErr := srv.Call(walkRequest{tr: graph.Transition(step.Transition)})
		if callErr != nil {
			report.Failures = append(report.Failures,
				fmt.Sprintf("step %d (%s): %v", i+1, step.Transition, callErr))
			break
		}

		rejected, _ := reply.(error)
		switch {
		case rejected != nil && !step.AllowReject:
			transcript.Note("reject %s", step.Transition)
			report.Failures = append(report.Failures,
				fmt.Sprintf("step %d (%s): %v", i+1, step.Transition, rejected))
		case rejected != nil:
			transcript.Note("reject %s", step.Transition)
		case step.AllowReject:
			report.Failures = append(report.Failures,
				fmt.Sprintf("step %d (%s): expected rejection, transition was taken", i+1, step.Transition))
		}
	}

	state, _, introErr := srv.Introspect()
	if introErr == nil {
		report.FinalState = state
		transcript.Note("final %s", state)
	}
	if sc.ExpectState != "" && state != graph.State(sc.ExpectState) {
		report.Failures = append(report.Failures,
			fmt.Sprintf("expected final state %q, got %q", sc.ExpectState, state))
	}

	_ = srv.Stop(nil)
	<-srv.Done()
	return report, nil
}
