// Package store provides persistence for flag configurations. The evaluation
// engine never reads the store directly; configs are loaded into an immutable
// snapshot and evaluated from there.
package store

import (
	"context"
	"errors"

	"github.com/flagbeam/flagbeam/internal/flags"
)

// ErrNotFound is returned when no config exists for a (environment, key) pair.
var ErrNotFound = errors.New("flag config not found")

// Store defines the interface for flag-config persistence operations.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetAllConfigs retrieves every flag config for the given environment.
	// Returns an empty slice when none exist.
	GetAllConfigs(ctx context.Context, env string) ([]flags.FlagConfig, error)

	// GetConfig retrieves one flag config by environment and flag key.
	// Returns ErrNotFound when it does not exist.
	GetConfig(ctx context.Context, env, key string) (*flags.FlagConfig, error)

	// UpsertConfig atomically replaces the whole config for the flag's
	// (environment, key) pair; partial in-place mutation is not possible
	// through this interface.
	UpsertConfig(ctx context.Context, params UpsertParams) error

	// DeleteConfig removes a config. Idempotent: deleting a missing config
	// is not an error.
	DeleteConfig(ctx context.Context, env, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// UpsertParams carries one complete (flag, environment config) replacement.
type UpsertParams struct {
	Flag   flags.Flag              `json:"flag"`
	Config flags.EnvironmentConfig `json:"config"`
}

// Validate checks the replacement before it is persisted; rule validation is
// strict here so broken configs never reach a snapshot.
func (p UpsertParams) Validate() error {
	fc := flags.FlagConfig{Flag: p.Flag, Config: &p.Config}
	return fc.Validate()
}
