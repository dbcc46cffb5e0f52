package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	stateserver "github.com/ityonemo/state-server"
	"github.com/ityonemo/state-server/graph"
)

// NewDemoCommand creates the demo command: an interactive instance of a
// loaded graph, driven from stdin.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo <graph-file>",
		Short: "Drive a graph interactively",
		Long: `Run one instance of the graph and feed it transitions from stdin.

Each input line names a transition out of the current state. Unknown
transitions are reported and ignored. The run ends on EOF, on "quit",
or when a terminal state is reached.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

// attempt is the call payload asking the instance to take a transition.
type attempt struct {
	tr graph.Transition
}

func runDemo(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, gf, err := LoadGraph(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	out := cmd.OutOrStdout()
	def := stateserver.Definition{
		Graph: g,
		Callbacks: stateserver.Callbacks{
			HandleCall: func(req any, _ stateserver.From, state graph.State, data any) stateserver.Result {
				att, ok := req.(attempt)
				if !ok {
					return stateserver.Reply(fmt.Errorf("unknown request %T", req))
				}
				if !g.IsValidTransition(state, att.tr) {
					return stateserver.Reply(fmt.Errorf("no transition %q out of %q", att.tr, state))
				}
				return stateserver.Reply(nil, stateserver.Transition(att.tr))
			},
			OnStateEntry: func(tr graph.Transition, state graph.State, data any) stateserver.Result {
				if tr == stateserver.NoTransition {
					fmt.Fprintf(out, "* %s\n", state)
				} else {
					fmt.Fprintf(out, "* %s (via %s)\n", state, tr)
				}
				return stateserver.NoReply()
			},
		},
	}

	srv, err := stateserver.Start(def, nil, stateserver.WithName(gf.Name))
	if err != nil && errors.Is(err, stateserver.ErrNameTaken) {
		srv, err = stateserver.Start(def, nil)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}
	defer func() { _ = srv.Stop(nil) }()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		reply, callErr := srv.Call(attempt{tr: graph.Transition(line)})
		if callErr != nil {
			_ = formatter.Error(ErrCodeGeneric, callErr.Error(), nil)
			return NewExitError(ExitFailure, callErr.Error())
		}
		if replyErr, ok := reply.(error); ok && replyErr != nil {
			fmt.Fprintf(out, "! %v\n", replyErr)
			continue
		}

		state, _, introErr := srv.Introspect()
		if introErr != nil {
			break
		}
		if g.IsTerminal(state) {
			fmt.Fprintf(out, "reached terminal state %q\n", state)
			break
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return WrapExitError(ExitCommandError, "reading input", scanErr)
	}
	return nil
}
