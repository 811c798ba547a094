package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/0x99f/dualsync/cmd/dualsync/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dualsync",
		Short: "Keep code entities consistent across vector and graph stores",
	}

	rootCmd.AddCommand(
		commands.NewCheckCommand(),
		commands.NewSyncCommand(),
		commands.NewStatsCommand(),
		commands.NewMCPServeCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
