package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"prodflow/internal/policy"
	"prodflow/internal/runloop"
)

func newRunCommand(app *App) *cobra.Command {
	var maxTasks int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the task loop until done, paused, or blocked",
		Long: `Run implementation tasks one at a time through the coding agent.
The loop picks the lowest-id ready task, executes it, and re-reads the
task directory before selecting the next one, so external edits between
steps are honored. The loop stops when all tasks are done, when a step
fails its checks or signals uncertainty, or on Ctrl-C (the current step
finishes first, then the loop pauses).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pol := app.Policy
			if maxTasks > 0 {
				pol.Execution.MaxConsecutiveTasks = maxTasks
			}
			return runLoop(app, cmd, pol, false)
		},
	}

	cmd.Flags().IntVar(&maxTasks, "max", 0, "checkpoint after this many consecutive tasks (0 = policy default)")

	return cmd
}

func newNextCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Run a single task step",
		Long: `Execute exactly one task step: pick the lowest-id ready task, run
it through the coding agent, and return to idle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(app, cmd, app.Policy, true)
		},
	}
}

func runLoop(app *App, cmd *cobra.Command, pol policy.Policy, single bool) error {
	sess := app.loadState()
	renderWarnings(app.Out, sess.Warnings, app.Styles)

	sched := app.scheduler(sess, pol)

	// Ctrl-C requests a cooperative pause; the in-flight step is allowed
	// to finish.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer func() {
		// Stop guarantees no further sends, so closing lets the
		// forwarding goroutine exit.
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		for range sigCh {
			fmt.Fprintln(app.Out, "pause requested, finishing current step...")
			sched.RequestPause()
		}
	}()

	var st *runloop.State
	var err error
	if single {
		st, err = sched.Step(cmd.Context())
	} else {
		st, err = sched.Run(cmd.Context())
	}
	if err != nil {
		if errors.Is(err, runloop.ErrBlocked) {
			fmt.Fprintln(app.Out, "run loop is blocked")
			renderCheckpoint(app.Out, st.Pending, app.Styles)
			return NewExitError(1)
		}
		fmt.Fprintf(app.Out, "cannot start run loop: %v\n", err)
		return NewExitError(1)
	}

	fmt.Fprintf(app.Out, "run loop: %s\n", st.Phase)
	renderCheckpoint(app.Out, st.Pending, app.Styles)
	if st.Phase == runloop.PhaseBlocked {
		return NewExitError(1)
	}
	return nil
}

func newAckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge a blocked or paused run loop",
		Long: `Clear a blocked or paused run loop back to idle. Acknowledgement
does not retry anything; it returns control so the blocking condition
can be addressed before the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := app.loadState()
			sched := app.scheduler(sess, app.Policy)

			if err := sched.Acknowledge(); err != nil {
				fmt.Fprintf(app.Out, "nothing to acknowledge: run loop is %s\n", sess.Run.Phase)
				return NewExitError(1)
			}
			if err := app.saveState(sess); err != nil {
				fmt.Fprintf(app.Out, "failed to persist acknowledgement: %v\n", err)
				return NewExitError(1)
			}

			fmt.Fprintln(app.Out, "acknowledged, run loop is idle")
			return nil
		},
	}
}
