package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively create a config file",
	Long: `Create a configuration file interactively.

You will be prompted for:
  - Serving domain
  - Telegram bot token and chat id
  - Admin credentials
  - Database backend and connection string

The result is written to ./config.yaml unless --output is given.`,
	// Skip the config loading the parent does; there may be nothing to
	// load yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVar(&configureOutput, "output", "config.yaml", "path to write the config file")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configureOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	domainPrompt := promptui.Prompt{
		Label: "Serving domain (e.g. img.example.com)",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("domain is required")
			}
			if strings.Contains(input, "/") {
				return errors.New("domain must be a bare hostname, no scheme or path")
			}
			return nil
		},
	}
	domain, err := domainPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	tokenPrompt := promptui.Prompt{
		Label: "Telegram bot token",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("bot token is required")
			}
			return nil
		},
	}
	botToken, err := tokenPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	chatPrompt := promptui.Prompt{
		Label: "Telegram chat id",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("chat id is required")
			}
			return nil
		},
	}
	chatID, err := chatPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	userPrompt := promptui.Prompt{
		Label:   "Admin username",
		Default: "admin",
	}
	username, err := userPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	passPrompt := promptui.Prompt{
		Label: "Admin password",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	password, err := passPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	dbSelect := promptui.Select{
		Label: "Database backend",
		Items: []string{"sqlite", "postgres"},
	}
	_, dbType, err := dbSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	defaultDSN := "mediabed.db"
	if dbType == "postgres" {
		defaultDSN = "postgres://localhost:5432/mediabed"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database connection string",
		Default: defaultDSN,
	}
	dsn, err := dsnPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	v := viper.New()
	v.Set("server.domain", domain)
	v.Set("telegram.bot_token", botToken)
	v.Set("telegram.chat_id", chatID)
	v.Set("auth.username", username)
	v.Set("auth.password", password)
	v.Set("database.type", dbType)
	v.Set("database.dsn", dsn)

	if err := v.WriteConfigAs(configureOutput); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Config written to %s.\n", configureOutput)
	fmt.Println("Run 'mediabed serve' to start the server.")
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
