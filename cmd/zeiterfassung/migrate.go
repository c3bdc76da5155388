package main

import (
	"context"
	"fmt"

	"github.com/focusshift/zeiterfassung/internal/config"
	"github.com/focusshift/zeiterfassung/internal/persistence/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := context.Background()
			db, err := postgres.Open(ctx, databaseConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db, logger); err != nil {
				return err
			}
			outln("✅ Schema applied")
			return nil
		},
	}
}
