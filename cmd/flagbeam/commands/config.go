package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flagbeam/flagbeam/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the CLI configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter CLI configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &cli.ToolConfig{
			DefaultEnv: "prod",
			Environments: map[string]cli.EnvConfig{
				"dev": {
					BaseURL: "http://localhost:8080",
					APIKey:  "admin-123",
				},
				"prod": {
					BaseURL: "https://flagbeam.example.com",
					APIKey:  "",
				},
			},
		}
		if err := cli.SaveToolConfig(cfg); err != nil {
			return err
		}
		if !quiet {
			path, _ := cli.ConfigPath()
			fmt.Printf("Wrote starter config to %s\n", path)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current CLI configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadToolConfig()
		if err != nil {
			return err
		}
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	},
}

var configSetEnvCmd = &cobra.Command{
	Use:   "set-env <name> <base-url> <api-key>",
	Short: "Add or update an environment in the CLI configuration",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadToolConfig()
		if err != nil {
			return err
		}
		if cfg.Environments == nil {
			cfg.Environments = make(map[string]cli.EnvConfig)
		}
		cfg.Environments[args[0]] = cli.EnvConfig{BaseURL: args[1], APIKey: args[2]}
		if err := cli.SaveToolConfig(cfg); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("Saved environment '%s'\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetEnvCmd)
}
