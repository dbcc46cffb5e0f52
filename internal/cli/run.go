package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ityonemo/state-server/internal/harness"
)

// RunResult is the JSON payload of a scenario run.
type RunResult struct {
	Scenario   string   `json:"scenario"`
	Passed     bool     `json:"passed"`
	FinalState string   `json:"final_state"`
	Failures   []string `json:"failures,omitempty"`
	Transcript []string `json:"transcript"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <graph-file> <scenario-file>",
		Short: "Run a scripted scenario against a graph",
		Long: `Run a YAML scenario against a YAML state graph.

Each scenario step attempts one transition; the run fails when a step
is unexpectedly rejected or the machine ends in the wrong state.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runScenario(opts *RootOptions, graphPath, scenarioPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, _, err := LoadGraph(graphPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	sc, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	formatter.VerboseLog("Running scenario %q: %d step(s)", sc.Name, len(sc.Steps))

	report, err := harness.Run(g, sc)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	result := RunResult{
		Scenario:   report.Scenario,
		Passed:     report.Passed(),
		FinalState: string(report.FinalState),
		Failures:   report.Failures,
		Transcript: report.Transcript.Lines(),
	}

	if formatter.Format == "json" {
		if report.Passed() {
			return formatter.Success(result)
		}
		_ = formatter.Error(ErrCodeGeneric, "scenario failed", result)
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", sc.Name))
	}

	fmt.Fprint(formatter.Writer, report.Transcript.String())
	if !report.Passed() {
		fmt.Fprintln(formatter.Writer, "✗ Scenario failed")
		for _, f := range report.Failures {
			fmt.Fprintf(formatter.Writer, "  %s\n", f)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", sc.Name))
	}
	fmt.Fprintln(formatter.Writer, "✓ Scenario passed")
	return nil
}
