package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
)

// NewCheckCommand scans a project for dual-store consistency issues.
func NewCheckCommand() *cobra.Command {
	var (
		flags  commonFlags
		repair bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check dual-store consistency for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunCheck(cmd.Context(), flags.project, repair)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "project id")
	cmd.Flags().StringVarP(&flags.db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&flags.embedURL, "embed-url", "", "embedding API address")
	cmd.Flags().BoolVar(&repair, "repair", false, "repair detected issues")

	return cmd
}
