package cli

import (
	"fmt"

	"portops/internal/config"
	"portops/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand(load configLoader) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the orders schema to the database",
		Long: `Create the order number sequence, the orders and order_items tables and
their indexes. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), database.Schema())
				return nil
			}

			cfg, err := load()
			if err != nil {
				return err
			}

			logger := config.NewLogger(cfg.Logger)
			pool, err := database.NewPool(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			return database.Migrate(cmd.Context(), pool, logger)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")

	return cmd
}
