package engine

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/flagbeam/flagbeam/internal/rules"
)

// operatorHandler evaluates one condition operator against an attribute value
// that is known to be present. Handlers are pure and side-effect free; every
// coercion failure yields false, never an error.
type operatorHandler interface {
	Check(attrValue, condValue any) bool
}

var (
	operatorHandlers = map[rules.Operator]operatorHandler{
		rules.OpEquals:      equalsHandler{},
		rules.OpNotEquals:   notHandler{equalsHandler{}},
		rules.OpContains:    containsHandler{},
		rules.OpNotContains: notHandler{containsHandler{}},
		rules.OpIn:          inHandler{},
		rules.OpNotIn:       notHandler{inHandler{}},
		rules.OpGt:          numericHandler{cmp: func(a, b float64) bool { return a > b }},
		rules.OpLt:          numericHandler{cmp: func(a, b float64) bool { return a < b }},
		rules.OpGte:         numericHandler{cmp: func(a, b float64) bool { return a >= b }},
		rules.OpLte:         numericHandler{cmp: func(a, b float64) bool { return a <= b }},
		rules.OpMatches:     regexHandler{},
		rules.OpNotMatches:  regexHandler{negate: true},
		rules.OpStartsWith:  textHandler{fn: strings.HasPrefix},
		rules.OpEndsWith:    textHandler{fn: strings.HasSuffix},
		rules.OpSemVerGt:    semverHandler{cmp: func(a, b *semver.Version) bool { return a.GreaterThan(b) }},
		rules.OpSemVerLt:    semverHandler{cmp: func(a, b *semver.Version) bool { return a.LessThan(b) }},
	}

	// regexCache keeps compiled patterns for the hot evaluation path.
	// Values are *regexp.Regexp.
	regexCache sync.Map
)

// matchCondition evaluates one condition against a normalized context.
//
// A condition whose attribute is absent is false for EVERY operator,
// including the negated ones: absence never satisfies a negated test, which
// keeps incomplete contexts from over-matching.
func matchCondition(c rules.Condition, attrs attrLookup) bool {
	attrValue, ok := attrs.Attr(c.Attribute)
	if !ok {
		return false
	}
	handler, ok := operatorHandlers[normalizeOperator(c.Operator)]
	if !ok {
		return false
	}
	return handler.Check(attrValue, c.Value)
}

// normalizeOperator accepts common aliases so configs written against other
// SDK dialects still evaluate.
func normalizeOperator(op rules.Operator) rules.Operator {
	switch strings.ToLower(string(op)) {
	case "==", "eq":
		return rules.OpEquals
	case "!=", "neq":
		return rules.OpNotEquals
	case ">", "gt":
		return rules.OpGt
	case "<", "lt":
		return rules.OpLt
	case ">=", "gte":
		return rules.OpGte
	case "<=", "lte":
		return rules.OpLte
	case "regex":
		return rules.OpMatches
	case "in_list":
		return rules.OpIn
	case "not_in_list", "nin":
		return rules.OpNotIn
	case "version_gt":
		return rules.OpSemVerGt
	case "version_lt":
		return rules.OpSemVerLt
	default:
		return op
	}
}

// notHandler negates an inner handler. Absence is rejected before handlers
// run, so negation here only ever flips a present-attribute verdict.
type notHandler struct {
	inner operatorHandler
}

func (h notHandler) Check(attrValue, condValue any) bool {
	return !h.inner.Check(attrValue, condValue)
}

type equalsHandler struct{}

// Check applies strict equality with one deliberate exception: when both
// sides coerce to numbers (including numeric strings), they compare
// numerically, so "42" equals 42.
func (equalsHandler) Check(attrValue, condValue any) bool {
	if a, ok := toNumber(attrValue); ok {
		if b, ok := toNumber(condValue); ok {
			return a == b
		}
		return false
	}
	if a, ok := attrValue.(string); ok {
		b, ok := condValue.(string)
		return ok && a == b
	}
	if a, ok := attrValue.(bool); ok {
		b, ok := condValue.(bool)
		return ok && a == b
	}
	// Opaque and structured values compare structurally.
	return reflect.DeepEqual(attrValue, condValue)
}

type containsHandler struct{}

// Check is a substring test for text attributes and a membership test for
// list attributes. No coercion across kinds.
func (containsHandler) Check(attrValue, condValue any) bool {
	switch attr := attrValue.(type) {
	case string:
		needle, ok := condValue.(string)
		return ok && strings.Contains(attr, needle)
	case []any:
		for _, item := range attr {
			if exactEqual(item, condValue) {
				return true
			}
		}
		return false
	case []string:
		needle, ok := condValue.(string)
		if !ok {
			return false
		}
		for _, item := range attr {
			if item == needle {
				return true
			}
		}
		return false
	default:
		return false
	}
}

type inHandler struct{}

// Check tests membership of the attribute value in the condition's list.
// Exact element match, no coercion.
func (inHandler) Check(attrValue, condValue any) bool {
	switch list := condValue.(type) {
	case []any:
		for _, item := range list {
			if exactEqual(attrValue, item) {
				return true
			}
		}
	case []string:
		attr, ok := attrValue.(string)
		if !ok {
			return false
		}
		for _, item := range list {
			if item == attr {
				return true
			}
		}
	}
	return false
}

type numericHandler struct {
	cmp func(a, b float64) bool
}

func (h numericHandler) Check(attrValue, condValue any) bool {
	a, ok := toNumber(attrValue)
	if !ok {
		return false
	}
	b, ok := toNumber(condValue)
	if !ok {
		return false
	}
	return h.cmp(a, b)
}

type regexHandler struct {
	negate bool
}

// Check matches the attribute, as text, against the condition's pattern. An
// invalid pattern makes the condition false in BOTH polarities; the broken
// pattern is reported once at configuration load, not here.
func (h regexHandler) Check(attrValue, condValue any) bool {
	text, ok := toText(attrValue)
	if !ok {
		return false
	}
	pattern, ok := condValue.(string)
	if !ok {
		return false
	}
	rx, ok := compiledRegex(pattern)
	if !ok {
		return false
	}
	matched := rx.MatchString(text)
	if h.negate {
		return !matched
	}
	return matched
}

type textHandler struct {
	fn func(s, affix string) bool
}

func (h textHandler) Check(attrValue, condValue any) bool {
	text, ok := toText(attrValue)
	if !ok {
		return false
	}
	affix, ok := condValue.(string)
	if !ok {
		return false
	}
	return h.fn(text, affix)
}

type semverHandler struct {
	cmp func(a, b *semver.Version) bool
}

func (h semverHandler) Check(attrValue, condValue any) bool {
	attrStr, ok := attrValue.(string)
	if !ok {
		return false
	}
	condStr, ok := condValue.(string)
	if !ok {
		return false
	}
	attrVer, err := semver.NewVersion(attrStr)
	if err != nil {
		return false
	}
	condVer, err := semver.NewVersion(condStr)
	if err != nil {
		return false
	}
	return h.cmp(attrVer, condVer)
}

func compiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}

// toNumber coerces numeric types and numeric strings to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toText renders scalar values as text for the prefix/suffix/regex operators.
// Structured values are not coerced.
func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// exactEqual is element equality without numeric-string coercion: kinds must
// line up, with DeepEqual covering structured values.
func exactEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
