// Package bucketing assigns subjects to deterministic percentage buckets.
//
// The assignment is a versioned cross-implementation contract: any client in
// any language hashing the same scope and subject must land on the same
// bucket. Changing the hash function, the separator, or the scale is a
// breaking change and requires bumping ContractVersion.
package bucketing

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

const (
	// ContractVersion identifies the bucketing contract implemented here:
	// xxHash64 over "scope:subjectID", reduced modulo Scale. No salt.
	ContractVersion = 1

	// Scale is the bucket space size. Buckets are basis points, so a
	// percentage maps to percentage*100 buckets.
	Scale = 10000
)

// ErrInvalidPercentage is returned for percentages outside [0, 100].
var ErrInvalidPercentage = errors.New("rollout percentage must be between 0 and 100")

// Bucket returns the deterministic bucket in [0, Scale) for a subject within
// a scope. Same inputs always produce the same bucket, across processes,
// restarts, and implementations.
func Bucket(scope, subjectID string) int {
	return int(xxhash.Sum64String(scope+":"+subjectID) % Scale)
}

// RuleScope derives the hashing scope for a rule-level rollout. It differs
// from the flag-level scope so the two rollouts assign independently.
func RuleScope(flagKey, ruleID string) string {
	return flagKey + ":" + ruleID
}

// Included reports whether the subject falls inside the given percentage of
// the scope's population. 0 excludes everyone and 100 includes everyone
// without hashing.
func Included(scope, subjectID string, percentage int) (bool, error) {
	if percentage < 0 || percentage > 100 {
		return false, ErrInvalidPercentage
	}
	switch percentage {
	case 0:
		return false, nil
	case 100:
		return true, nil
	}
	return Bucket(scope, subjectID) < percentage*100, nil
}
