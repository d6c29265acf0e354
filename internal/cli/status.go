package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(app *App) *cobra.Command {
	var board bool
	var list bool
	var selectTask string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stage board and task groups",
		Long: `Show the feature's stage board with each stage's derived status,
the tasks (grouped board or flat list, per the saved view preference),
the run-loop phase, and any warnings accumulated during reconciliation.

The --board, --list, and --select flags update the saved view
preference for subsequent invocations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := app.loadState()

			prefsChanged := false
			if board {
				sess.Workflow.View.Board = true
				prefsChanged = true
			}
			if list {
				sess.Workflow.View.Board = false
				prefsChanged = true
			}
			if selectTask != "" {
				if _, ok := sess.Tasks.Get(selectTask); !ok {
					fmt.Fprintf(app.Out, "unknown task %q\n", selectTask)
					return NewExitError(1)
				}
				sess.Workflow.View.SelectedTask = selectTask
				prefsChanged = true
			}
			if prefsChanged {
				if err := app.saveState(sess); err != nil {
					fmt.Fprintf(app.Out, "failed to persist view preference: %v\n", err)
					return NewExitError(1)
				}
			}

			// Without an explicit selection the active-context hint, if
			// any, marks the task being worked on.
			selected := sess.Workflow.View.SelectedTask
			if selected == "" {
				selected = sess.Tasks.ActiveHint
			}

			renderBoard(app.Out, sess, app.Policy, app.ArtifactProbe(), app.Styles)
			if sess.Workflow.View.Board {
				renderTasks(app.Out, sess.Tasks, selected, app.Styles)
			} else {
				renderTaskList(app.Out, sess.Tasks, selected, app.Styles)
			}

			fmt.Fprintln(app.Out)
			fmt.Fprintf(app.Out, "%s %s\n", app.Styles.Heading.Render("Run loop:"), sess.Run.Phase)
			renderCheckpoint(app.Out, sess.Run.Pending, app.Styles)

			renderWarnings(app.Out, sess.Warnings, app.Styles)
			return nil
		},
	}

	cmd.Flags().BoolVar(&board, "board", false, "use and save the grouped board view")
	cmd.Flags().BoolVar(&list, "list", false, "use and save the flat list view")
	cmd.Flags().StringVar(&selectTask, "select", "", "select a task and save the selection")
	cmd.MarkFlagsMutuallyExclusive("board", "list")

	return cmd
}
