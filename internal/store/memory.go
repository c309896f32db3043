package store

import (
	"context"
	"sync"
	"time"

	"github.com/flagbeam/flagbeam/internal/flags"
)

// MemoryStore is an in-memory Store backed by a map and an RWMutex. Suitable
// for development, tests, and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[memKey]flags.FlagConfig
}

type memKey struct {
	env string
	key string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[memKey]flags.FlagConfig)}
}

// GetAllConfigs retrieves every flag config for the given environment.
func (m *MemoryStore) GetAllConfigs(ctx context.Context, env string) ([]flags.FlagConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]flags.FlagConfig, 0, len(m.configs))
	for k, fc := range m.configs {
		if k.env == env {
			result = append(result, fc)
		}
	}
	return result, nil
}

// GetConfig retrieves one flag config by environment and flag key.
func (m *MemoryStore) GetConfig(ctx context.Context, env, key string) (*flags.FlagConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fc, ok := m.configs[memKey{env: env, key: key}]
	if !ok {
		return nil, ErrNotFound
	}
	return &fc, nil
}

// UpsertConfig replaces the stored config for the flag's (environment, key).
func (m *MemoryStore) UpsertConfig(ctx context.Context, params UpsertParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := params.Config
	m.configs[memKey{env: cfg.Environment, key: params.Flag.Key}] = flags.FlagConfig{
		Flag:      params.Flag,
		Config:    &cfg,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// DeleteConfig removes a config; missing configs are ignored.
func (m *MemoryStore) DeleteConfig(ctx context.Context, env, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.configs, memKey{env: env, key: key})
	return nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error { return nil }
