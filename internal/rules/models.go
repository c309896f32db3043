// Package rules defines targeting rule and condition models plus their
// load-time validation.
package rules

// Operator represents a comparison operator used in targeting conditions.
type Operator string

// Supported targeting operators (string values for clean JSON serialization).
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpGt          Operator = "greater_than"
	OpLt          Operator = "less_than"
	OpGte         Operator = "greater_or_equal"
	OpLte         Operator = "less_or_equal"
	OpMatches     Operator = "matches"
	OpNotMatches  Operator = "not_matches"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpSemVerGt    Operator = "semver_gt"
	OpSemVerLt    Operator = "semver_lt"
)

// CombineMode is how a rule's conditions are combined.
type CombineMode string

const (
	// CombineAll requires every condition to match (logical AND).
	CombineAll CombineMode = "all"
	// CombineAny requires at least one condition to match (logical OR).
	CombineAny CombineMode = "any"
)

// Condition is a single targeting predicate. Attribute names dot into the
// context's attribute map; the reserved name "id" resolves to the subject
// identifier.
type Condition struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
}

// Rule is an ordered, conditional override that routes matching subjects to a
// target variation. Array position within the owning config defines priority:
// earlier rules win.
//
// Exactly one of three match sources applies:
//   - Conditions, combined per Combine (defaulting to all)
//   - Expression, a JSON Logic expression over the attribute map
//   - CatchAll, an explicit marker for an unconditional rule
//
// A rule with none of the three is rejected at validation; an empty condition
// list is never treated as an implicit catch-all.
type Rule struct {
	ID                string      `json:"id"`
	Conditions        []Condition `json:"conditions,omitempty"`
	Combine           CombineMode `json:"combine,omitempty"`
	Expression        string      `json:"expression,omitempty"`
	CatchAll          bool        `json:"catchAll,omitempty"`
	VariationKey      string      `json:"variationKey"`
	RolloutPercentage *int        `json:"rolloutPercentage,omitempty"`
}

// Mode returns the effective combine mode, defaulting to CombineAll.
func (r Rule) Mode() CombineMode {
	if r.Combine == CombineAny {
		return CombineAny
	}
	return CombineAll
}
