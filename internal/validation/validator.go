// Package validation provides request-level validation for flag keys,
// environment names, and config payloads. Semantic rule validation lives in
// the flags and rules packages; this package guards the admin API surface.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/flagbeam/flagbeam/internal/flags"
)

const (
	// MaxKeyLength is the maximum length for flag keys.
	MaxKeyLength = 64
	// MaxEnvLength is the maximum length for environment names.
	MaxEnvLength = 32
	// MaxVariationKeyLength is the maximum length for variation keys.
	MaxVariationKeyLength = 64
	// MaxPayloadSize is the maximum size of an upsert body in bytes.
	MaxPayloadSize = 100 * 1024
)

// keyPattern matches alphanumeric characters, underscores, and hyphens.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Result accumulates per-field validation errors.
type Result struct {
	Valid  bool
	Errors map[string]string
}

func NewResult() *Result {
	return &Result{Valid: true, Errors: make(map[string]string)}
}

// AddError records a field error and marks the result invalid.
func (r *Result) AddError(field, message string) {
	r.Valid = false
	r.Errors[field] = message
}

// Merge folds another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		r.AddError(field, message)
	}
}

// ValidateKey validates a flag key.
func ValidateKey(key string) *Result {
	result := NewResult()
	key = strings.TrimSpace(key)

	if key == "" {
		result.AddError("key", "key is required")
		return result
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		result.AddError("key", "key must not exceed 64 characters")
		return result
	}
	if !keyPattern.MatchString(key) {
		result.AddError("key", "key must contain only alphanumeric characters, underscores, and hyphens")
	}
	return result
}

// ValidateEnv validates an environment name.
func ValidateEnv(env string) *Result {
	result := NewResult()
	env = strings.TrimSpace(env)

	if env == "" {
		result.AddError("env", "environment is required")
		return result
	}
	if utf8.RuneCountInString(env) > MaxEnvLength {
		result.AddError("env", "environment must not exceed 32 characters")
	}
	return result
}

// ValidateVariations checks variation keys for presence, length, and
// duplicates. Payload decodability is reported by flags.Diagnostics, not
// rejected here.
func ValidateVariations(variations []flags.Variation) *Result {
	result := NewResult()
	seen := make(map[string]bool)

	for _, v := range variations {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			result.AddError("variations", "variation key cannot be empty")
			continue
		}
		if utf8.RuneCountInString(key) > MaxVariationKeyLength {
			result.AddError("variations", "variation key must not exceed 64 characters")
			continue
		}
		if seen[key] {
			result.AddError("variations", "duplicate variation key: "+key)
			continue
		}
		seen[key] = true
	}
	return result
}

// ValidateUpsert validates the request-level shape of a flag upsert. The
// caller runs semantic validation (rules, rollout ranges) separately.
func ValidateUpsert(key, env string, variations []flags.Variation) *Result {
	result := NewResult()
	result.Merge(ValidateKey(key))
	result.Merge(ValidateEnv(env))
	result.Merge(ValidateVariations(variations))
	return result
}
