package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
)

// NewSyncCommand reconciles all unsynced entities of a project.
func NewSyncCommand() *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile unsynced entities between the vector and graph stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunSync(cmd.Context(), flags.project)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "project id")
	cmd.Flags().StringVarP(&flags.db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&flags.embedURL, "embed-url", "", "embedding API address")
	cmd.Flags().IntVar(&flags.syncWorkers, "sync-workers", 1, "parallel sync workers")

	return cmd
}
