// Package commands implements the flagbeam CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "flagbeam",
	Short: "CLI for the flagbeam feature-flag service",
	Long: `Flagbeam is a command-line tool for evaluating and managing feature
flags, either against a running flagbeam server or offline from a flag file.

Examples:
  flagbeam evaluate --user user-1 --attr tier=premium --env prod
  flagbeam evaluate --file flags.yaml --user user-1
  flagbeam list --env prod
  flagbeam import flags.yaml --env staging
  flagbeam bucket checkout_redesign user-1 --percentage 30`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the flagbeam API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}
