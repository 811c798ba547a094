package commands

import (
	"github.com/spf13/cobra"

	"github.com/0x99f/dualsync/cmd/cmdsfx"
)

// NewMCPServeCommand starts an MCP server exposing sync and consistency tools.
func NewMCPServeCommand() *cobra.Command {
	var (
		flags     commonFlags
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide entity sync and consistency tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), flags, func(r *cmdsfx.CommandRunner) error {
				return r.RunMCPServer(transport, address)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "project id")
	cmd.Flags().StringVarP(&flags.db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&flags.embedURL, "embed-url", "", "embed API address")
	cmd.Flags().IntVar(&flags.syncWorkers, "sync-workers", 1, "parallel sync workers")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")

	return cmd
}
