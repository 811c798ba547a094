package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
)

// NewStatsCommand prints sync, consistency and transaction statistics.
func NewStatsCommand() *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sync, consistency and transaction statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunStats(flags.project)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "project id")
	cmd.Flags().StringVarP(&flags.db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&flags.embedURL, "embed-url", "", "embedding API address")

	return cmd
}
