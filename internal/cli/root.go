package cli

import (
	"fmt"
	"os"

	"portops/internal/config"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the portops command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "portops",
		Short: "PortOps orders service",
		Long: `PortOps serves the order submission and order read API of the port
operations dashboard, backed by PostgreSQL.

Configuration comes from an optional YAML file and environment variables
(SERVER_PORT, DB_HOST, API_KEY, ...); environment variables win.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newCheckCommand(load),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)
