package cli

import (
	"fmt"

	"portops/internal/config"
	"portops/internal/database"

	"github.com/spf13/cobra"
)

func newCheckCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger := config.NewLogger(cfg.Logger)
			pool, err := database.NewPool(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("unable to connect to database: %w", err)
			}
			defer pool.Close()

			var dbName, version string
			err = pool.QueryRow(cmd.Context(), "SELECT current_database(), current_setting('server_version')").
				Scan(&dbName, &version)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			var ordersTable *string
			if err := pool.QueryRow(cmd.Context(), "SELECT to_regclass('public.orders')::text").Scan(&ordersTable); err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Successfully connected to database: %s (PostgreSQL %s)\n", dbName, version)
			if ordersTable == nil {
				fmt.Fprintln(out, "Schema not applied; run `portops migrate`")
			} else {
				fmt.Fprintln(out, "Schema present")
			}
			return nil
		},
	}
}
