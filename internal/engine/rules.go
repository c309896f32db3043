package engine

import (
	"github.com/flagbeam/flagbeam/internal/bucketing"
	"github.com/flagbeam/flagbeam/internal/evalcontext"
	"github.com/flagbeam/flagbeam/internal/rules"
	"github.com/flagbeam/flagbeam/internal/targeting"
)

// evaluateRules scans the config's rules in stored order and returns the
// first rule that fully matches: conditions satisfied AND, when the rule
// carries its own rollout percentage, the subject inside that rollout. A
// failed rollout gate does not terminate the scan; later rules still get
// their chance.
func evaluateRules(flagKey string, rs []rules.Rule, ctx evalcontext.Context) (rules.Rule, bool) {
	for _, rule := range rs {
		if !ruleMatches(rule, ctx) {
			continue
		}

		if pct := rule.RolloutPercentage; pct != nil {
			scope := bucketing.RuleScope(flagKey, rule.ID)
			included, err := bucketing.Included(scope, ctx.SubjectID, *pct)
			if err != nil || !included {
				continue
			}
		}

		return rule, true
	}
	return rules.Rule{}, false
}

// ruleMatches combines the rule's conditions per its combine mode. Catch-all
// rules match unconditionally; expression rules delegate to JSON Logic, with
// any expression error treated as no-match.
func ruleMatches(rule rules.Rule, ctx evalcontext.Context) bool {
	if rule.Expression != "" {
		ok, err := targeting.Evaluate(rule.Expression, ctx.Attributes)
		return err == nil && ok
	}

	if len(rule.Conditions) == 0 {
		// Validation rejects bare zero-condition rules; only the explicit
		// catch-all marker reaches this point.
		return rule.CatchAll
	}

	switch rule.Mode() {
	case rules.CombineAny:
		for _, c := range rule.Conditions {
			if matchCondition(c, ctx) {
				return true
			}
		}
		return false
	default: // CombineAll
		for _, c := range rule.Conditions {
			if !matchCondition(c, ctx) {
				return false
			}
		}
		return true
	}
}
