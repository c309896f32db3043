package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
	"github.com/flagbeam/flagbeam/internal/flags"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all flags in the server's snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, _, err := cli.ResolveEnv(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		snap, _, err := c.Snapshot(context.Background(), "")
		if err != nil {
			return fmt.Errorf("fetch snapshot: %w", err)
		}

		configs := make([]flags.FlagConfig, 0, len(snap.Flags))
		for _, fc := range snap.Flags {
			configs = append(configs, fc)
		}
		sort.Slice(configs, func(i, j int) bool {
			return configs[i].Flag.Key < configs[j].Flag.Key
		})

		return cli.PrintConfigs(os.Stdout, configs, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
