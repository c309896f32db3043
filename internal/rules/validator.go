package rules

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/flagbeam/flagbeam/internal/targeting"
)

// Sentinel errors returned by ValidateRule.
var (
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidCondition  = errors.New("invalid condition")
	ErrInvalidValueType  = errors.New("invalid value type")
	ErrInvalidRollout    = errors.New("invalid rollout percentage")
	ErrInvalidExpression = errors.New("invalid expression")
	ErrEmptyRule         = errors.New("rule has no conditions, no expression, and no catch-all marker")
)

// validOperators is the set of all recognised targeting operators.
var validOperators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {},
	OpContains: {}, OpNotContains: {},
	OpIn: {}, OpNotIn: {},
	OpGt: {}, OpLt: {}, OpGte: {}, OpLte: {},
	OpMatches: {}, OpNotMatches: {},
	OpStartsWith: {}, OpEndsWith: {},
	OpSemVerGt: {}, OpSemVerLt: {},
}

// ValidateRule performs strict structural validation of a targeting Rule.
// It is pure: it never mutates r and has no side effects.
//
// Zero-condition rules are rejected unless the rule carries an Expression or
// the explicit CatchAll marker; silently matching everything on an empty
// condition list is exactly the ambiguity this check removes. An invalid
// regex value does NOT fail validation (the condition degrades to
// never-matching at evaluation time); use PatternDiagnostics to surface it
// once per configuration load.
func ValidateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule id must not be empty", ErrInvalidCondition)
	}
	if r.VariationKey == "" {
		return fmt.Errorf("%w: rule %q must set a variation key", ErrInvalidCondition, r.ID)
	}
	if r.Combine != "" && r.Combine != CombineAll && r.Combine != CombineAny {
		return fmt.Errorf("%w: rule %q combine mode %q is not supported", ErrInvalidCondition, r.ID, r.Combine)
	}
	if r.RolloutPercentage != nil && (*r.RolloutPercentage < 0 || *r.RolloutPercentage > 100) {
		return fmt.Errorf("%w: rule %q rollout %d not in 0..100", ErrInvalidRollout, r.ID, *r.RolloutPercentage)
	}

	if len(r.Conditions) == 0 && r.Expression == "" && !r.CatchAll {
		return fmt.Errorf("%w: rule %q", ErrEmptyRule, r.ID)
	}

	if r.Expression != "" {
		if len(r.Conditions) > 0 {
			return fmt.Errorf("%w: rule %q sets both conditions and an expression", ErrInvalidCondition, r.ID)
		}
		if err := targeting.ValidateExpression(r.Expression); err != nil {
			return fmt.Errorf("%w: rule %q: %v", ErrInvalidExpression, r.ID, err)
		}
	}

	for i, c := range r.Conditions {
		if err := validateCondition(i, c); err != nil {
			return fmt.Errorf("rule %q: %w", r.ID, err)
		}
	}

	return nil
}

func validateCondition(i int, c Condition) error {
	if c.Attribute == "" {
		return fmt.Errorf("%w: condition[%d] attribute must not be empty", ErrInvalidCondition, i)
	}

	if _, ok := validOperators[c.Operator]; !ok {
		return fmt.Errorf("%w: condition[%d] operator %q is not supported", ErrInvalidOperator, i, c.Operator)
	}

	return validateValueType(i, c.Operator, c.Value)
}

// validateValueType checks that the condition value has a type compatible
// with the operator. Explicit type assertions, no reflection.
func validateValueType(i int, op Operator, v any) error {
	switch op {
	case OpMatches, OpNotMatches, OpStartsWith, OpEndsWith, OpSemVerGt, OpSemVerLt:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: condition[%d] operator %q requires a string value", ErrInvalidValueType, i, op)
		}

	case OpIn, OpNotIn:
		if !isSlice(v) {
			return fmt.Errorf("%w: condition[%d] operator %q requires a list value", ErrInvalidValueType, i, op)
		}

	case OpGt, OpLt, OpGte, OpLte:
		if !isNumeric(v) {
			return fmt.Errorf("%w: condition[%d] operator %q requires a numeric value", ErrInvalidValueType, i, op)
		}

	case OpContains, OpNotContains:
		if !isScalar(v) {
			return fmt.Errorf("%w: condition[%d] operator %q requires a scalar value", ErrInvalidValueType, i, op)
		}

	case OpEquals, OpNotEquals:
		// Any JSON value is comparable for equality, including lists and
		// objects (compared structurally).
	}

	return nil
}

// PatternDiagnostics returns one human-readable diagnostic per invalid regex
// pattern in the given rules. Callers log these once per configuration load;
// at evaluation time the affected conditions simply never match.
func PatternDiagnostics(rs []Rule) []string {
	var diags []string
	for _, r := range rs {
		for i, c := range r.Conditions {
			if c.Operator != OpMatches && c.Operator != OpNotMatches {
				continue
			}
			pattern, ok := c.Value.(string)
			if !ok {
				continue // caught by ValidateRule
			}
			if _, err := regexp.Compile(pattern); err != nil {
				diags = append(diags, fmt.Sprintf(
					"rule %q condition[%d]: invalid pattern %q: %v", r.ID, i, pattern, err))
			}
		}
	}
	return diags
}

// isSlice returns true for slice types that may appear after JSON
// unmarshaling or be provided programmatically.
func isSlice(v any) bool {
	switch v.(type) {
	case []any, []string, []int, []float64:
		return true
	}
	return false
}

// isNumeric returns true for integer and floating-point types.
func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// isScalar returns true for basic scalar types (string, bool, numeric).
func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}
