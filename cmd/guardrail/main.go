// Command guardrail evaluates an ads placement experiment window from a JSON
// document and exits with a status that encodes the recommended action.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ads-guardrail/internal/domain"
)

// actionError carries a non-hold action out of the evaluate command.
type actionError struct {
	action domain.Action
}

func (e *actionError) Error() string {
	return fmt.Sprintf("recommended action: %s", e.action)
}

type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	logger  *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "guardrail",
		Short: "Evaluate ads placement experiment guardrails",
		Long: `guardrail compares daily experiment metrics against a baseline and
recommends hold, hard_rollback, soft_rollback or no_lift_rollback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(c.evaluateCmd(), c.templateCmd(), c.historyCmd())
	return root
}

// execute runs the CLI and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ae *actionError
	if errors.As(err, &ae) {
		return ae.action.ExitCode()
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
