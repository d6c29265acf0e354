package cli

import (
	"github.com/spf13/cobra"
)

func newEventsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Show the run-event timeline",
		Long: `Show the append-only run-event timeline for the feature. Entries
whose task no longer exists are annotated as orphaned; they are never
removed from the timeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := app.loadState()
			renderEvents(app.Out, sess.Run.Events, app.Styles)
			renderWarnings(app.Out, sess.Warnings, app.Styles)
			return nil
		},
	}
}
