package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prodflow/internal/workflow"
)

func newStageCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <target>",
		Short: "Transition the feature to another stage",
		Long: `Transition the feature to a target stage (plan, design, tasks,
implement, or review). Moving backward is always allowed. Moving forward
is allowed one stage at a time and only when every required approval gate
up to the target is satisfied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := workflow.Stage(args[0])
			if !target.IsValid() {
				fmt.Fprintf(app.Out, "unknown stage %q\n", args[0])
				return NewExitError(1)
			}

			sess := app.loadState()

			check := workflow.CanTransition(sess.Workflow, target, app.Policy)
			if !check.Allowed {
				fmt.Fprintf(app.Out, "cannot move to %s: %s\n", target, check.Reason)
				return NewExitError(1)
			}

			from := sess.Workflow.CurrentStage
			sess.Workflow.CurrentStage = target
			if err := app.saveState(sess); err != nil {
				fmt.Fprintf(app.Out, "failed to persist stage change: %v\n", err)
				return NewExitError(1)
			}

			fmt.Fprintf(app.Out, "stage: %s -> %s\n", from, target)
			renderWarnings(app.Out, sess.Warnings, app.Styles)
			return nil
		},
	}
}
