package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a flag's configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, effectiveEnv, err := cli.ResolveEnv(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		if err := c.DeleteFlag(context.Background(), args[0], effectiveEnv); err != nil {
			return fmt.Errorf("delete flag: %w", err)
		}
		if !quiet {
			fmt.Printf("Deleted flag '%s' in environment '%s'\n", args[0], effectiveEnv)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
