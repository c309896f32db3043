package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
	"github.com/flagbeam/flagbeam/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import flags from a YAML/JSON flag file",
	Long: `Import every flag from a flag file into the target environment. The
file is validated before any flag is sent; a file with one broken entry
imports nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := cli.LoadFlagFile(args[0])
		if err != nil {
			return err
		}

		envCfg, effectiveEnv, err := cli.ResolveEnv(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		ctx := context.Background()
		for _, fc := range file.Flags {
			if fc.Config == nil {
				continue
			}
			cfg := *fc.Config
			cfg.Environment = effectiveEnv
			params := store.UpsertParams{Flag: fc.Flag, Config: cfg}
			if err := c.UpsertFlag(ctx, params); err != nil {
				return fmt.Errorf("import flag %q: %w", fc.Flag.Key, err)
			}
			if !quiet {
				fmt.Printf("Imported flag '%s' into environment '%s'\n", fc.Flag.Key, effectiveEnv)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
