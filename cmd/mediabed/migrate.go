package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mediabed/mediabed/config"
	"github.com/mediabed/mediabed/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog tables",
	Long: `Create the catalog tables and indexes in the configured database.
Migration is idempotent; existing tables are left untouched.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	// Connect runs migrations and validates the schema as part of setup.
	_, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	slog.Info("database migration complete",
		"type", cfg.Database.Type,
		"media_table", cfg.Database.Tables.Media,
		"folders_table", cfg.Database.Tables.Folders,
	)
	return nil
}
