// Package flags holds the configuration model the evaluation engine reads:
// flags, typed variations, and per-environment configs. All of it is authored
// by an external management layer; the engine only ever sees immutable
// snapshots of these records.
package flags

import (
	"encoding/json"
	"time"

	"github.com/flagbeam/flagbeam/internal/rules"
)

// FlagType is the declared value type of a flag. Every variation of the flag
// deserializes against this type.
type FlagType string

const (
	TypeBoolean FlagType = "boolean"
	TypeString  FlagType = "string"
	TypeNumber  FlagType = "number"
	TypeJSON    FlagType = "json"
)

// FlagStatus is the lifecycle status of a flag.
type FlagStatus string

const (
	StatusActive   FlagStatus = "active"
	StatusInactive FlagStatus = "inactive"
	StatusArchived FlagStatus = "archived"
)

// Variation is one of a flag's possible typed output values, addressed by
// key. The value is stored serialized and decoded per the flag's declared
// type; decoding fails closed (the variation is treated as absent).
type Variation struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Flag is a feature flag's immutable identity: key, declared type, lifecycle
// status, and its ordered variation set. Variation keys are unique within the
// flag and should not be removed once referenced by live configuration.
type Flag struct {
	Key        string      `json:"key"`
	Type       FlagType    `json:"type"`
	Status     FlagStatus  `json:"status"`
	Variations []Variation `json:"variations"`
}

// Variation looks up a variation by key among the flag's variations.
func (f Flag) Variation(key string) (Variation, bool) {
	if key == "" {
		return Variation{}, false
	}
	for _, v := range f.Variations {
		if v.Key == key {
			return v, true
		}
	}
	return Variation{}, false
}

// EnvironmentConfig is the per-(flag, environment) evaluation configuration.
// A nil RolloutPercentage means no flag-level rollout: matching subjects
// always fall through to the default variation.
type EnvironmentConfig struct {
	Environment          string       `json:"environment"`
	Enabled              bool         `json:"enabled"`
	DefaultVariationKey  string       `json:"defaultVariationKey"`
	FallbackVariationKey string       `json:"fallbackVariationKey"`
	Rules                []rules.Rule `json:"rules,omitempty"`
	RolloutPercentage    *int         `json:"rolloutPercentage,omitempty"`
}

// FlagConfig is the combined view the engine evaluates: one flag plus its
// environment config. Config is nil when no config exists for the
// environment; evaluation then takes the NO_CONFIG path. The whole value is
// replaced atomically on updates, never mutated in place.
type FlagConfig struct {
	Flag      Flag               `json:"flag"`
	Config    *EnvironmentConfig `json:"config,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Validate checks the referential invariants a config must satisfy before it
// is published to the engine: rule structure and rollout range. Dangling
// default/fallback variation keys are deliberately NOT an error here — the
// resolver degrades to any available variation — but they are surfaced as
// diagnostics by Diagnostics.
func (fc FlagConfig) Validate() error {
	if fc.Config == nil {
		return nil
	}
	for _, r := range fc.Config.Rules {
		if err := rules.ValidateRule(r); err != nil {
			return err
		}
	}
	if p := fc.Config.RolloutPercentage; p != nil && (*p < 0 || *p > 100) {
		return rules.ErrInvalidRollout
	}
	return nil
}

// Diagnostics returns human-readable findings that do not block publication:
// dangling variation references, undecodable variation values, and invalid
// regex patterns. Recorded once per configuration load, never per evaluation.
func (fc FlagConfig) Diagnostics() []string {
	var diags []string

	for _, v := range fc.Flag.Variations {
		if _, ok := DecodeValue(fc.Flag.Type, v.Value); !ok {
			diags = append(diags, "variation "+v.Key+" value does not decode as "+string(fc.Flag.Type))
		}
	}

	if cfg := fc.Config; cfg != nil {
		if key := cfg.DefaultVariationKey; key != "" {
			if _, ok := fc.Flag.Variation(key); !ok {
				diags = append(diags, "defaultVariationKey "+key+" does not reference a variation")
			}
		}
		if key := cfg.FallbackVariationKey; key != "" {
			if _, ok := fc.Flag.Variation(key); !ok {
				diags = append(diags, "fallbackVariationKey "+key+" does not reference a variation")
			}
		}
		for _, r := range cfg.Rules {
			if r.VariationKey != "" {
				if _, ok := fc.Flag.Variation(r.VariationKey); !ok {
					diags = append(diags, "rule "+r.ID+" variationKey "+r.VariationKey+" does not reference a variation")
				}
			}
		}
		diags = append(diags, rules.PatternDiagnostics(cfg.Rules)...)
	}

	return diags
}
