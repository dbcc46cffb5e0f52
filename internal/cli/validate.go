package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ityonemo/state-server/graph"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Name     string       `json:"name,omitempty"`
	Initial  string       `json:"initial,omitempty"`
	States   []string     `json:"states,omitempty"`
	Terminal []string     `json:"terminal,omitempty"`
	Errors   []GraphIssue `json:"errors,omitempty"`
}

// GraphIssue is the JSON shape of one validation failure.
type GraphIssue struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	State      string `json:"state,omitempty"`
	Transition string `json:"transition,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph-file>",
		Short: "Validate a state graph file",
		Long: `Validate a YAML state graph without running anything.

Checks the structural rules: at least one state, unique state names,
unique transition names per state, and every transition target declared.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	gf, err := LoadGraphFile(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	formatter.VerboseLog("Loaded %d state(s) from %s", len(gf.States), path)

	g, err := BuildGraph(gf)
	if err != nil {
		return outputValidationError(formatter, gf, err)
	}

	return outputValidateSuccess(formatter, gf, g)
}

func outputValidateSuccess(formatter *OutputFormatter, gf *GraphFile, g *graph.Graph) error {
	states := g.States()
	result := ValidationResult{
		Valid:   true,
		Name:    gf.Name,
		Initial: string(g.Initial()),
	}
	for _, st := range states {
		result.States = append(result.States, string(st))
		if g.IsTerminal(st) {
			result.Terminal = append(result.Terminal, string(st))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Graph valid")
	fmt.Fprintf(formatter.Writer, "  initial: %s\n", result.Initial)
	fmt.Fprintf(formatter.Writer, "  states:  %d (%d terminal)\n", len(result.States), len(result.Terminal))
	return nil
}

func outputValidationError(formatter *OutputFormatter, gf *GraphFile, err error) error {
	issue := GraphIssue{Code: ErrCodeGeneric, Message: err.Error()}
	var verr *graph.ValidationError
	if errors.As(err, &verr) {
		issue = GraphIssue{
			Code:       string(verr.Code),
			Message:    verr.Message,
			State:      string(verr.State),
			Transition: string(verr.Transition),
		}
	}

	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Name: gf.Name, Errors: []GraphIssue{issue}}
		if encErr := formatter.Error(issue.Code, issue.Message, result); encErr != nil {
			return encErr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", issue.Message))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", issue.Message))
}
