package engine

import "github.com/flagbeam/flagbeam/internal/flags"

// Reason is the closed enumeration explaining which path of the decision
// chain produced a result.
type Reason string

const (
	ReasonNoConfig  Reason = "NO_CONFIG"
	ReasonDisabled  Reason = "DISABLED"
	ReasonTargeting Reason = "TARGETING"
	ReasonRollout   Reason = "ROLLOUT"
	ReasonDefault   Reason = "DEFAULT"
	ReasonError     Reason = "ERROR"
)

// Rollout-excluded policy, pinned as named constants so tests can assert the
// product decision directly: a subject outside a configured flag-level
// rollout gets the DEFAULT reason and the fallback variation (the default
// variation is the one the rollout ramps toward).
const (
	rolloutExcludedReason       = ReasonDefault
	rolloutExcludedUsesFallback = true
)

// Result is the deterministic output of one flag evaluation.
type Result struct {
	FlagKey      string      `json:"flagKey"`
	Value        flags.Value `json:"value"`
	VariationKey string      `json:"variationKey"`
	Enabled      bool        `json:"enabled"`
	Reason       Reason      `json:"reason"`
	MatchedRule  string      `json:"matchedRule,omitempty"`
}

// attrLookup is the slice of the evaluation context the matcher needs.
type attrLookup interface {
	Attr(name string) (any, bool)
}
