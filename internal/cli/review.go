package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"prodflow/internal/review"
)

func newReviewCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List changed files in the working tree",
		Long: `List the working tree's changed files (Added, Modified, Deleted)
for review. Use "review open" to view, diff, or edit a listed file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := app.Diff.Changes()
			if err != nil {
				fmt.Fprintf(app.Out, "cannot list changes: %v\n", err)
				return NewExitError(1)
			}
			renderChanges(app.Out, files, app.Styles)
			return nil
		},
	}

	cmd.AddCommand(newReviewOpenCommand(app))

	return cmd
}

func newReviewOpenCommand(app *App) *cobra.Command {
	var mode string

	openCmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a changed file in view, diff, or edit mode",
		Long: `Open a changed file. The file is re-checked against the listing
immediately before the action: if it was deleted or rewritten in the
meantime the action is refused as stale and the listing must be
refreshed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub := review.NewHub(app.Diff, app.Opener, app.Config.Feature.Root)
			if _, err := hub.Refresh(); err != nil {
				fmt.Fprintf(app.Out, "cannot list changes: %v\n", err)
				return NewExitError(1)
			}

			err := hub.Open(review.Mode(mode), args[0])
			switch {
			case errors.Is(err, review.ErrStale):
				fmt.Fprintf(app.Out, "%s is stale, please refresh the listing\n", args[0])
				return NewExitError(1)
			case err != nil:
				fmt.Fprintf(app.Out, "cannot open %s: %v\n", args[0], err)
				return NewExitError(1)
			}
			return nil
		},
	}

	openCmd.Flags().StringVar(&mode, "mode", string(review.ModeView), "open mode: view, diff, or edit")

	return openCmd
}
