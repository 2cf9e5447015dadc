package main

import (
	"os"

	"github.com/spf13/cobra"

	"hyperfleet/internal/interfaces/cli/migrate"
	"hyperfleet/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hyperfleet",
		Short: "Hyperfleet - fleet connection health monitoring",
		Long:  `Hyperfleet monitors a fleet of hypervisor endpoints: health probing, adaptive timeout calibration, and alerting.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
