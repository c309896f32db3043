package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flagbeam/flagbeam/internal/cli"
	"github.com/flagbeam/flagbeam/internal/client"
	"github.com/flagbeam/flagbeam/internal/flags"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the server's flags to a flag file",
	Long: `Export every flag in the server's snapshot to a YAML or JSON flag
file that 'flagbeam import' and 'flagbeam evaluate --file' accept. The format
follows the output file extension (.json for JSON, anything else for YAML).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, effectiveEnv, err := cli.ResolveEnv(env, baseURL, apiKey)
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

		file := cli.FlagFile{Environment: effectiveEnv, Flags: configs}
		data, err := encodeFlagFile(file, exportOutput)
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o600); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		if !quiet {
			fmt.Printf("Exported %d flags to %s\n", len(configs), exportOutput)
		}
		return nil
	},
}

// encodeFlagFile serializes through a JSON round-trip so raw JSON variation
// payloads come out as plain YAML values instead of byte blobs.
func encodeFlagFile(file cli.FlagFile, output string) ([]byte, error) {
	jsonData, err := json.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode flags: %w", err)
	}
	if strings.HasSuffix(output, ".json") {
		var buf any
		if err := json.Unmarshal(jsonData, &buf); err != nil {
			return nil, err
		}
		return json.MarshalIndent(buf, "", "  ")
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOutput, "output", "-", "Output file path ('-' for stdout)")
}
