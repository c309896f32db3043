package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
	"github.com/flagbeam/flagbeam/internal/engine"
	"github.com/flagbeam/flagbeam/internal/evalcontext"
)

var (
	evalFile    string
	evalUser    string
	evalSession string
	evalAttrs   []string
	evalKeys    []string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate flags for a subject",
	Long: `Evaluate flags for a subject, either against a running server or
offline from a flag file. Attribute values are parsed as JSON where possible,
so --attr seats=10 is a number and --attr beta=true is a boolean.

Examples:
  flagbeam evaluate --user user-1 --attr tier=premium --env prod
  flagbeam evaluate --file flags.yaml --user user-1 --keys checkout_redesign`,
	RunE: func(cmd *cobra.Command, args []string) error {
		attributes, err := parseAttrs(evalAttrs)
		if err != nil {
			return err
		}
		raw := evalcontext.Raw{
			UserID:     evalUser,
			SessionID:  evalSession,
			Attributes: attributes,
		}

		var results map[string]engine.Result
		if evalFile != "" {
			file, err := cli.LoadFlagFile(evalFile)
			if err != nil {
				return err
			}
			ctx := evalcontext.Normalize(raw)
			results = engine.EvaluateAll(file.SnapshotMap(), ctx, evalKeys)
		} else {
			envCfg, _, err := cli.ResolveEnv(env, baseURL, apiKey)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
			resp, err := c.Evaluate(context.Background(), raw, evalKeys)
			if err != nil {
				return fmt.Errorf("evaluate failed: %w", err)
			}
			results = resp.Flags
		}

		return cli.PrintResults(os.Stdout, results, cli.OutputFormat(format))
	},
}

// parseAttrs turns key=value pairs into attributes, keeping JSON types where
// the value parses as JSON.
func parseAttrs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			attrs[key] = parsed
		} else {
			attrs[key] = value
		}
	}
	return attrs, nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalFile, "file", "", "Evaluate offline from a YAML/JSON flag file")
	evaluateCmd.Flags().StringVar(&evalUser, "user", "", "Subject user ID")
	evaluateCmd.Flags().StringVar(&evalSession, "session", "", "Subject session ID")
	evaluateCmd.Flags().StringArrayVar(&evalAttrs, "attr", nil, "Subject attribute as key=value (repeatable)")
	evaluateCmd.Flags().StringSliceVar(&evalKeys, "keys", nil, "Restrict evaluation to these flag keys")
}
