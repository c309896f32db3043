package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flagbeam/flagbeam/internal/flags"
)

// PostgresStore is a PostgreSQL implementation of Store. Flag and config
// documents are stored as JSONB so the schema tracks the model without
// per-field migrations; see migrations/0001_flag_configs.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	selectAllConfigs = `SELECT flag, config, updated_at FROM flag_configs WHERE env = $1 ORDER BY key`
	selectConfig     = `SELECT flag, config, updated_at FROM flag_configs WHERE env = $1 AND key = $2`
	upsertConfig     = `INSERT INTO flag_configs (env, key, flag, config, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (env, key) DO UPDATE SET flag = EXCLUDED.flag, config = EXCLUDED.config, updated_at = now()`
	deleteConfig = `DELETE FROM flag_configs WHERE env = $1 AND key = $2`
)

// GetAllConfigs retrieves every flag config for the given environment.
func (p *PostgresStore) GetAllConfigs(ctx context.Context, env string) ([]flags.FlagConfig, error) {
	rows, err := p.pool.Query(ctx, selectAllConfigs, env)
	if err != nil {
		return nil, fmt.Errorf("query flag configs: %w", err)
	}
	defer rows.Close()

	var configs []flags.FlagConfig
	for rows.Next() {
		fc, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, fc)
	}
	return configs, rows.Err()
}

// GetConfig retrieves one flag config by environment and flag key.
func (p *PostgresStore) GetConfig(ctx context.Context, env, key string) (*flags.FlagConfig, error) {
	rows, err := p.pool.Query(ctx, selectConfig, env, key)
	if err != nil {
		return nil, fmt.Errorf("query flag config: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	fc, err := scanConfig(rows)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

// UpsertConfig atomically replaces the stored (flag, config) documents.
func (p *PostgresStore) UpsertConfig(ctx context.Context, params UpsertParams) error {
	flagDoc, err := json.Marshal(params.Flag)
	if err != nil {
		return fmt.Errorf("encode flag: %w", err)
	}
	cfgDoc, err := json.Marshal(params.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	_, err = p.pool.Exec(ctx, upsertConfig, params.Config.Environment, params.Flag.Key, flagDoc, cfgDoc)
	if err != nil {
		return fmt.Errorf("upsert flag config: %w", err)
	}
	return nil
}

// DeleteConfig removes a config; deleting a missing row is not an error.
func (p *PostgresStore) DeleteConfig(ctx context.Context, env, key string) error {
	if _, err := p.pool.Exec(ctx, deleteConfig, env, key); err != nil {
		return fmt.Errorf("delete flag config: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanConfig(rows pgx.Rows) (flags.FlagConfig, error) {
	var (
		flagDoc   []byte
		cfgDoc    []byte
		updatedAt pgtype.Timestamptz
	)
	if err := rows.Scan(&flagDoc, &cfgDoc, &updatedAt); err != nil {
		return flags.FlagConfig{}, fmt.Errorf("scan flag config: %w", err)
	}

	var fc flags.FlagConfig
	if err := json.Unmarshal(flagDoc, &fc.Flag); err != nil {
		return flags.FlagConfig{}, fmt.Errorf("decode flag document: %w", err)
	}
	var cfg flags.EnvironmentConfig
	if err := json.Unmarshal(cfgDoc, &cfg); err != nil {
		return flags.FlagConfig{}, fmt.Errorf("decode config document: %w", err)
	}
	fc.Config = &cfg
	if updatedAt.Valid {
		fc.UpdatedAt = updatedAt.Time
	}
	return fc, nil
}
