package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediabed/mediabed/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "mediabed",
	Short:   "Media hosting server backed by the Telegram Bot API",
	Long: `Mediabed is a lightweight media hosting server. Uploaded files are
stored through the Telegram Bot API and served back under stable URLs,
with a relational catalog for folder organization and an in-process
edge cache in front of every lookup.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")

		var configFiles []string
		if configFile != "" {
			configFiles = []string{configFile}
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: MEDIABED_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: mediabed.db, env: MEDIABED_DATABASE_DSN)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
