package cli

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"prodflow/internal/workflow"
)

func newApproveCommand(app *App) *cobra.Command {
	return newDecisionCommand(app, "approve", workflow.Approved,
		"Approve a stage artifact",
		`Record an approval for a stage artifact (prd, design, or tasks).
A new decision for the same artifact replaces the prior record.

Example:
  prodflow approve design --note "LGTM" --actor alice`)
}

func newRejectCommand(app *App) *cobra.Command {
	return newDecisionCommand(app, "reject", workflow.Rejected,
		"Reject a stage artifact",
		`Record a rejection for a stage artifact (prd, design, or tasks).
A rejected artifact blocks its stage until a new decision is recorded.`)
}

func newDecisionCommand(app *App, verb string, decision workflow.Decision, short, long string) *cobra.Command {
	var note string
	var actor string

	cmd := &cobra.Command{
		Use:   verb + " <artifact>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact := workflow.Artifact(args[0])
			if !artifact.IsValid() {
				fmt.Fprintf(app.Out, "unknown artifact %q (expected prd, design, or tasks)\n", args[0])
				return NewExitError(1)
			}

			sess := app.loadState()

			who := actor
			if who == "" {
				if u, err := user.Current(); err == nil {
					who = u.Username
				}
			}

			rec := sess.Workflow.RecordApproval(artifact, decision, note, who)
			if err := app.saveState(sess); err != nil {
				fmt.Fprintf(app.Out, "failed to persist decision: %v\n", err)
				return NewExitError(1)
			}

			fmt.Fprintf(app.Out, "%s %s by %s at %s\n", artifact, rec.Status, rec.Actor, rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
			if decision == workflow.Rejected {
				if stage, ok := workflow.StageForArtifact(artifact); ok {
					fmt.Fprintf(app.Out, "advancing past %s is blocked until a new decision is recorded\n", stage)
				}
			}
			renderWarnings(app.Out, sess.Warnings, app.Styles)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "free-text note attached to the decision")
	cmd.Flags().StringVar(&actor, "actor", "", "who made the decision (defaults to the current user)")

	return cmd
}
