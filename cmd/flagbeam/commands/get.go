package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get one flag's stored configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, effectiveEnv, err := cli.ResolveEnv(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		fc, err := c.GetFlag(context.Background(), args[0], effectiveEnv)
		if err != nil {
			return fmt.Errorf("get flag: %w", err)
		}
		return cli.PrintConfig(os.Stdout, fc, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
