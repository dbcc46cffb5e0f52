package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportResult is the JSON payload for a rendered graph.
type ExportResult struct {
	Syntax string `json:"syntax"`
	Output string `json:"output"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		syntax  string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "export <graph-file>",
		Short: "Render a state graph as DOT or Mermaid",
		Long: `Render a YAML state graph for visualization.

DOT output feeds Graphviz; Mermaid output embeds in Markdown.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], syntax, outFile, cmd)
		},
	}

	cmd.Flags().StringVar(&syntax, "syntax", "dot", "diagram syntax (dot|mermaid)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *RootOptions, path, syntax, outFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, _, err := LoadGraph(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	var rendered string
	switch syntax {
	case "dot":
		rendered = g.DOT()
	case "mermaid":
		rendered = g.Mermaid()
	default:
		msg := fmt.Sprintf("invalid syntax %q: must be dot or mermaid", syntax)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(rendered), 0o644); err != nil {
			msg := fmt.Sprintf("writing %s: %v", outFile, err)
			_ = formatter.Error(ErrCodeWriteFailed, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		formatter.VerboseLog("Wrote %s", outFile)
		if formatter.Format == "json" {
			return formatter.Success(ExportResult{Syntax: syntax, Output: outFile})
		}
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(ExportResult{Syntax: syntax, Output: rendered})
	}
	fmt.Fprint(formatter.Writer, rendered)
	return nil
}
