// Package cli holds shared helpers for the flagbeam command-line tool:
// output rendering, tool configuration, and offline flag-file loading.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/flagbeam/flagbeam/internal/engine"
	"github.com/flagbeam/flagbeam/internal/flags"
)

// OutputFormat selects how CLI commands render their output.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintResults renders evaluation results, sorted by flag key.
func PrintResults(w io.Writer, results map[string]engine.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, results)
	case FormatYAML:
		return printYAML(w, results)
	case FormatTable:
		return printResultTable(w, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintConfigs renders flag configurations.
func PrintConfigs(w io.Writer, configs []flags.FlagConfig, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]flags.FlagConfig{"flags": configs})
	case FormatYAML:
		return printYAML(w, configs)
	case FormatTable:
		return printConfigTable(w, configs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintConfig renders a single flag configuration.
func PrintConfig(w io.Writer, fc *flags.FlagConfig, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, fc)
	case FormatYAML:
		return printYAML(w, fc)
	case FormatTable:
		return printConfigTable(w, []flags.FlagConfig{*fc})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printResultTable(w io.Writer, results map[string]engine.Result) error {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Flag", "Value", "Variation", "Enabled", "Reason", "Rule")

	for _, k := range keys {
		res := results[k]
		table.Append(
			res.FlagKey,
			res.Value.String(),
			res.VariationKey,
			fmt.Sprintf("%t", res.Enabled),
			string(res.Reason),
			res.MatchedRule,
		)
	}
	return table.Render()
}

func printConfigTable(w io.Writer, configs []flags.FlagConfig) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Type", "Status", "Env", "Enabled", "Rollout", "Rules", "Updated At")

	for _, fc := range configs {
		env, enabled, rollout, ruleCount := "-", "-", "-", "0"
		if cfg := fc.Config; cfg != nil {
			env = cfg.Environment
			enabled = fmt.Sprintf("%t", cfg.Enabled)
			if cfg.RolloutPercentage != nil {
				rollout = fmt.Sprintf("%d%%", *cfg.RolloutPercentage)
			}
			ruleCount = fmt.Sprintf("%d", len(cfg.Rules))
		}

		updated := "-"
		if !fc.UpdatedAt.IsZero() {
			updated = fc.UpdatedAt.Format("2006-01-02 15:04")
		}

		table.Append(
			fc.Flag.Key,
			string(fc.Flag.Type),
			string(fc.Flag.Status),
			env,
			enabled,
			rollout,
			ruleCount,
			updated,
		)
	}
	return table.Render()
}
