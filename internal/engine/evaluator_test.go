package engine

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagbeam/flagbeam/internal/evalcontext"
	"github.com/flagbeam/flagbeam/internal/flags"
	"github.com/flagbeam/flagbeam/internal/rules"
)

func intPtr(i int) *int { return &i }

func testFlag() flags.Flag {
	return flags.Flag{
		Key:    "checkout_redesign",
		Type:   flags.TypeBoolean,
		Status: flags.StatusActive,
		Variations: []flags.Variation{
			{Key: "on", Value: json.RawMessage(`true`)},
			{Key: "off", Value: json.RawMessage(`false`)},
		},
	}
}

func userCtx(id string, attrs map[string]any) evalcontext.Context {
	return evalcontext.Normalize(evalcontext.Raw{UserID: id, Attributes: attrs})
}

func TestEvaluate_NoConfig(t *testing.T) {
	fc := flags.FlagConfig{Flag: testFlag()}
	res := Evaluate(fc, userCtx("user-1", nil))

	assert.Equal(t, ReasonNoConfig, res.Reason)
	assert.False(t, res.Enabled)
	// Degrades to an available variation rather than failing.
	assert.Equal(t, "on", res.VariationKey)
}

func TestEvaluate_Disabled(t *testing.T) {
	// Scenario A: disabled config serves the fallback variation.
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:              false,
			FallbackVariationKey: "off",
			DefaultVariationKey:  "on",
			Rules: []rules.Rule{{
				ID: "r1", VariationKey: "on",
				CatchAll: true,
			}},
		},
	}
	res := Evaluate(fc, userCtx("user-1", nil))

	assert.Equal(t, ReasonDisabled, res.Reason)
	assert.False(t, res.Enabled)
	assert.Equal(t, "off", res.VariationKey)
	assert.Equal(t, false, res.Value.Any())
	assert.Empty(t, res.MatchedRule, "targeting must not be consulted when disabled")
}

func TestEvaluate_ArchivedFlagBehavesDisabled(t *testing.T) {
	f := testFlag()
	f.Status = flags.StatusArchived
	fc := flags.FlagConfig{
		Flag: f,
		Config: &flags.EnvironmentConfig{
			Enabled:              true,
			FallbackVariationKey: "off",
		},
	}
	res := Evaluate(fc, userCtx("user-1", nil))
	assert.Equal(t, ReasonDisabled, res.Reason)
	assert.Equal(t, "off", res.VariationKey)
}

func TestEvaluate_TargetingAndDefault(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules: []rules.Rule{{
				ID:           "premium-users",
				VariationKey: "on",
				Conditions: []rules.Condition{
					{Attribute: "tier", Operator: rules.OpEquals, Value: "premium"},
				},
			}},
		},
	}

	// Scenario B: matching context takes the targeting path.
	res := Evaluate(fc, userCtx("user-1", map[string]any{"tier": "premium"}))
	assert.Equal(t, ReasonTargeting, res.Reason)
	assert.True(t, res.Enabled)
	assert.Equal(t, "on", res.VariationKey)
	assert.Equal(t, "premium-users", res.MatchedRule)

	// Scenario C: non-matching context falls to the default.
	res = Evaluate(fc, userCtx("user-1", map[string]any{"tier": "free"}))
	assert.Equal(t, ReasonDefault, res.Reason)
	assert.True(t, res.Enabled)
	assert.Equal(t, "off", res.VariationKey)
}

func TestEvaluate_RulePrecedence(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules: []rules.Rule{
				{ID: "first", VariationKey: "on", Conditions: []rules.Condition{
					{Attribute: "country", Operator: rules.OpEquals, Value: "US"},
				}},
				{ID: "second", VariationKey: "off", Conditions: []rules.Condition{
					{Attribute: "country", Operator: rules.OpEquals, Value: "US"},
				}},
			},
		},
	}
	res := Evaluate(fc, userCtx("user-1", map[string]any{"country": "US"}))
	assert.Equal(t, "first", res.MatchedRule, "earlier rule must win when both match")
	assert.Equal(t, "on", res.VariationKey)
}

func TestEvaluate_RuleRolloutGateContinuesScan(t *testing.T) {
	// The first rule matches on conditions but its 0% rollout gate excludes
	// everyone; the scan must continue and the second rule must win.
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules: []rules.Rule{
				{ID: "gated", VariationKey: "on", RolloutPercentage: intPtr(0), Conditions: []rules.Condition{
					{Attribute: "country", Operator: rules.OpEquals, Value: "US"},
				}},
				{ID: "open", VariationKey: "on", Conditions: []rules.Condition{
					{Attribute: "country", Operator: rules.OpEquals, Value: "US"},
				}},
			},
		},
	}
	res := Evaluate(fc, userCtx("user-1", map[string]any{"country": "US"}))
	assert.Equal(t, ReasonTargeting, res.Reason)
	assert.Equal(t, "open", res.MatchedRule)
}

func TestEvaluate_RuleRolloutIndependentOfFlagRollout(t *testing.T) {
	// A rule-level rollout hashes scope flagKey:ruleID, so its population
	// must differ from the flag-level rollout population at the same
	// percentage.
	cfgRule := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules: []rules.Rule{{
				ID: "half", VariationKey: "on", CatchAll: true, RolloutPercentage: intPtr(50),
			}},
		},
	}
	cfgFlag := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:              true,
			DefaultVariationKey:  "on",
			FallbackVariationKey: "off",
			RolloutPercentage:    intPtr(50),
		},
	}

	diverged := false
	for i := 0; i < 200; i++ {
		ctx := userCtx(fmt.Sprintf("user-%d", i), nil)
		inRule := Evaluate(cfgRule, ctx).Reason == ReasonTargeting
		inFlag := Evaluate(cfgFlag, ctx).Reason == ReasonRollout
		if inRule != inFlag {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "rule and flag rollouts should assign independently")
}

func TestEvaluate_CatchAllRule(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules:               []rules.Rule{{ID: "everyone", VariationKey: "on", CatchAll: true}},
		},
	}
	res := Evaluate(fc, userCtx("user-1", nil))
	assert.Equal(t, ReasonTargeting, res.Reason)
	assert.Equal(t, "on", res.VariationKey)
}

func TestEvaluate_ExpressionRule(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "off",
			Rules: []rules.Rule{{
				ID:           "expr",
				VariationKey: "on",
				Expression:   `{"and": [{"==": [{"var": "tier"}, "premium"]}, {">": [{"var": "seats"}, 10]}]}`,
			}},
		},
	}

	res := Evaluate(fc, userCtx("user-1", map[string]any{"tier": "premium", "seats": 25}))
	assert.Equal(t, ReasonTargeting, res.Reason)

	res = Evaluate(fc, userCtx("user-1", map[string]any{"tier": "premium", "seats": 3}))
	assert.Equal(t, ReasonDefault, res.Reason)
}

func TestEvaluate_FlagRolloutDistribution(t *testing.T) {
	// Scenario D: 30% rollout ramps the default variation; excluded subjects
	// get DEFAULT with the fallback variation.
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:              true,
			DefaultVariationKey:  "on",
			FallbackVariationKey: "off",
			RolloutPercentage:    intPtr(30),
		},
	}

	const n = 100000
	rollout := 0
	for i := 0; i < n; i++ {
		res := Evaluate(fc, userCtx(fmt.Sprintf("user-%d", i), nil))
		require.True(t, res.Enabled)
		switch res.Reason {
		case ReasonRollout:
			require.Equal(t, "on", res.VariationKey)
			rollout++
		case ReasonDefault:
			require.Equal(t, "off", res.VariationKey)
		default:
			t.Fatalf("unexpected reason %s", res.Reason)
		}
	}
	assert.InDelta(t, n*30/100, rollout, n*0.01)
}

func TestEvaluate_Determinism(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:              true,
			DefaultVariationKey:  "on",
			FallbackVariationKey: "off",
			RolloutPercentage:    intPtr(50),
			Rules: []rules.Rule{{
				ID: "r1", VariationKey: "on",
				Conditions: []rules.Condition{{Attribute: "tier", Operator: rules.OpEquals, Value: "premium"}},
			}},
		},
	}
	ctx := userCtx("user-7", map[string]any{"tier": "basic"})

	first := Evaluate(fc, ctx)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again := Evaluate(fc, ctx)
		assert.Equal(t, first, again)
		b, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(b))
	}
}

func TestEvaluate_DanglingDefaultDegrades(t *testing.T) {
	fc := flags.FlagConfig{
		Flag: testFlag(),
		Config: &flags.EnvironmentConfig{
			Enabled:             true,
			DefaultVariationKey: "ghost",
		},
	}
	res := Evaluate(fc, userCtx("user-1", nil))
	assert.Equal(t, ReasonDefault, res.Reason)
	assert.Equal(t, "on", res.VariationKey, "dangling key degrades to an available variation")
}

func TestMissingFlag(t *testing.T) {
	res := MissingFlag("ghost_flag")
	assert.Equal(t, ReasonNoConfig, res.Reason)
	assert.False(t, res.Enabled)
	assert.Equal(t, flags.NoVariationKey, res.VariationKey)
	assert.Equal(t, false, res.Value.Any())
}

func TestEvaluateAll(t *testing.T) {
	inactive := testFlag()
	inactive.Key = "old_flag"
	inactive.Status = flags.StatusInactive

	configs := map[string]flags.FlagConfig{
		"checkout_redesign": {
			Flag: testFlag(),
			Config: &flags.EnvironmentConfig{
				Enabled:             true,
				DefaultVariationKey: "on",
			},
		},
		"old_flag": {Flag: inactive, Config: &flags.EnvironmentConfig{Enabled: true}},
	}
	ctx := userCtx("user-1", nil)

	all := EvaluateAll(configs, ctx, nil)
	require.Len(t, all, 1, "inactive flags are excluded from evaluate-all")
	assert.Equal(t, ReasonDefault, all["checkout_redesign"].Reason)

	filtered := EvaluateAll(configs, ctx, []string{"checkout_redesign", "does_not_exist"})
	require.Len(t, filtered, 1)
	_, ok := filtered["does_not_exist"]
	assert.False(t, ok, "unknown keys in the filter are skipped")
}
