// Package targeting evaluates JSON Logic (jsonlogic.com) expressions against
// an evaluation context's attribute map. Rules may carry an expression as an
// alternative to structured conditions.
package targeting

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// ErrInvalidExpression is returned when an expression is not valid JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

// Evaluate applies a JSON Logic expression to the given attribute map and
// reports whether the result is truthy. Expression errors are returned, never
// panicked; callers on the evaluation path treat any error as no-match.
func Evaluate(expression string, attributes map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, ErrEmptyExpression
	}

	data, err := json.Marshal(attributes)
	if err != nil {
		return false, err
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(data), &out); err != nil {
		return false, ErrInvalidExpression
	}

	var result any
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return false, err
	}

	return isTruthy(result), nil
}

// ValidateExpression checks that an expression parses and applies cleanly.
// Used at configuration load so broken expressions are rejected before they
// reach the evaluation path.
func ValidateExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}

	var rule any
	if err := json.Unmarshal([]byte(expression), &rule); err != nil {
		return ErrInvalidExpression
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), strings.NewReader("{}"), &out); err != nil {
		return ErrInvalidExpression
	}

	return nil
}

// isTruthy follows JavaScript-like truthiness: non-zero numbers, non-empty
// strings, non-empty arrays/objects, and true.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
