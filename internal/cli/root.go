package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prodflow/internal/config"
)

// ExecuteResult carries the outcome of a CLI invocation.
//
// Tests use this to assert on exit codes without process termination;
// [Execute] translates it to os.Exit.
type ExecuteResult struct {
	// ExitCode is the code to return to the shell.
	ExitCode int

	// Err is the error that produced a non-zero code, if any.
	Err error
}

// NewRootCommand builds the root command with all subcommands attached.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prodflow",
		Short: "Stage-gated feature workflow runner",
		Long: `prodflow drives a feature through its workflow stages
(plan, design, tasks, implement, review), enforcing approval gates
between stages and running implementation tasks one at a time
through an external coding agent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newStatusCommand(app),
		newApproveCommand(app),
		newRejectCommand(app),
		newStageCommand(app),
		newRunCommand(app),
		newNextCommand(app),
		newAckCommand(app),
		newEventsCommand(app),
		newReviewCommand(app),
	)

	return rootCmd
}

// RunWithConfig executes the CLI against a prepared configuration and
// argument list, returning the result instead of exiting.
func RunWithConfig(cfg *config.Config, args []string) ExecuteResult {
	app, err := NewApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExecuteResult{ExitCode: 1, Err: err}
	}

	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{ExitCode: 0}
}

// Execute loads configuration, runs the CLI with os.Args, and exits the
// process with the resulting code.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	result := RunWithConfig(cfg, os.Args[1:])
	os.Exit(result.ExitCode)
}
