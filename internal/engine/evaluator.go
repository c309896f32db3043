// Package engine implements the deterministic flag evaluation decision
// procedure: given an immutable flag configuration and a normalized
// evaluation context, decide which variation value to serve.
//
// Evaluation is a pure, synchronous computation with no I/O: safe for
// arbitrarily many concurrent callers against a shared snapshot, and
// idempotent for identical inputs. It never returns an error and never
// panics outward; every failure mode degrades to a safe typed default with a
// diagnostic reason.
package engine

import (
	"github.com/flagbeam/flagbeam/internal/bucketing"
	"github.com/flagbeam/flagbeam/internal/evalcontext"
	"github.com/flagbeam/flagbeam/internal/flags"
)

// Evaluate runs the decision chain for a single flag:
//
//	no-config -> disabled -> targeting -> rollout -> default
//
// Each call runs the chain to completion in one pass.
func Evaluate(fc flags.FlagConfig, ctx evalcontext.Context) (result Result) {
	result = Result{FlagKey: fc.Flag.Key}

	// Evaluation sits on callers' hot paths; an engine bug must surface as a
	// typed ERROR result, not a panic in the calling system.
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				FlagKey:      fc.Flag.Key,
				Value:        flags.ZeroValue(fc.Flag.Type),
				VariationKey: flags.NoVariationKey,
				Enabled:      false,
				Reason:       ReasonError,
			}
		}
	}()

	cfg := fc.Config
	if cfg == nil {
		result.Value, result.VariationKey = flags.Resolve(fc.Flag, nil, "")
		result.Reason = ReasonNoConfig
		return result
	}

	// An archived or inactive flag is served exactly like a disabled config:
	// targeting is never consulted.
	if !cfg.Enabled || fc.Flag.Status != flags.StatusActive {
		result.Value, result.VariationKey = flags.Resolve(fc.Flag, cfg, cfg.FallbackVariationKey)
		result.Reason = ReasonDisabled
		return result
	}

	if rule, ok := evaluateRules(fc.Flag.Key, cfg.Rules, ctx); ok {
		result.Value, result.VariationKey = flags.Resolve(fc.Flag, cfg, rule.VariationKey)
		result.Enabled = true
		result.Reason = ReasonTargeting
		result.MatchedRule = rule.ID
		return result
	}

	if pct := cfg.RolloutPercentage; pct != nil {
		included, err := bucketing.Included(fc.Flag.Key, ctx.SubjectID, *pct)
		if err == nil && included {
			result.Value, result.VariationKey = flags.Resolve(fc.Flag, cfg, cfg.DefaultVariationKey)
			result.Enabled = true
			result.Reason = ReasonRollout
			return result
		}

		// Outside the rollout. Policy pinned in types.go.
		target := cfg.DefaultVariationKey
		if rolloutExcludedUsesFallback {
			target = cfg.FallbackVariationKey
		}
		result.Value, result.VariationKey = flags.Resolve(fc.Flag, cfg, target)
		result.Enabled = true
		result.Reason = rolloutExcludedReason
		return result
	}

	result.Value, result.VariationKey = flags.Resolve(fc.Flag, cfg, cfg.DefaultVariationKey)
	result.Enabled = true
	result.Reason = ReasonDefault
	return result
}

// MissingFlag is the result for a flag key entirely unknown to the snapshot:
// the safest possible default, reported as NO_CONFIG.
func MissingFlag(key string) Result {
	return Result{
		FlagKey:      key,
		Value:        flags.ZeroValue(flags.TypeBoolean),
		VariationKey: flags.NoVariationKey,
		Enabled:      false,
		Reason:       ReasonNoConfig,
	}
}

// EvaluateAll evaluates every active flag in the given set for one context,
// returning results keyed by flag key. A non-empty keys filter restricts the
// output to those keys; filtered keys missing from the set are skipped.
func EvaluateAll(configs map[string]flags.FlagConfig, ctx evalcontext.Context, keys []string) map[string]Result {
	results := make(map[string]Result, len(configs))

	if len(keys) > 0 {
		for _, key := range keys {
			if fc, ok := configs[key]; ok {
				results[key] = Evaluate(fc, ctx)
			}
		}
		return results
	}

	for key, fc := range configs {
		if fc.Flag.Status != flags.StatusActive {
			continue
		}
		results[key] = Evaluate(fc, ctx)
	}
	return results
}
