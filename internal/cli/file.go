package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flagbeam/flagbeam/internal/flags"
)

// FlagFile is the on-disk document for offline evaluation and bulk import.
type FlagFile struct {
	Environment string             `json:"environment"`
	Flags       []flags.FlagConfig `json:"flags"`
}

// LoadFlagFile reads a YAML or JSON flag file and validates every entry.
// YAML input is normalized through a JSON round-trip so the same struct tags
// serve both formats and variation values land as raw JSON payloads.
func LoadFlagFile(path string) (*FlagFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flag file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flag file: %w", err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize flag file: %w", err)
	}

	var file FlagFile
	if err := json.Unmarshal(normalized, &file); err != nil {
		return nil, fmt.Errorf("decode flag file: %w", err)
	}

	var problems []string
	for i := range file.Flags {
		fc := &file.Flags[i]
		if fc.Config != nil && fc.Config.Environment == "" {
			fc.Config.Environment = file.Environment
		}
		if err := fc.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("flag %q: %v", fc.Flag.Key, err))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid flag file: %s", strings.Join(problems, "; "))
	}

	return &file, nil
}

// SnapshotMap keys the file's flags for the evaluation engine.
func (f *FlagFile) SnapshotMap() map[string]flags.FlagConfig {
	out := make(map[string]flags.FlagConfig, len(f.Flags))
	for _, fc := range f.Flags {
		out[fc.Flag.Key] = fc
	}
	return out
}
