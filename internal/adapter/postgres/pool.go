// Package postgres holds the PostgreSQL plumbing shared by the relational
// repositories: the connection pool, transactions carried in context, the
// durability switch for majority writes and driver error mapping.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mflix-backend/internal/config"
)

// NewPool creates a PostgreSQL connection pool configured from DatabaseConfig.
// It parses the DSN, applies pool settings (max/min conns, lifetimes), pings
// the database for fail-fast validation, and returns the ready pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureIndexes creates the optional indexes that depend on configuration.
// The base schema comes from migrations/postgres.
func EnsureIndexes(ctx context.Context, pool *pgxpool.Pool, uniqueSessionToken bool) error {
	if !uniqueSessionToken {
		return nil
	}
	if _, err := pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS sessions_jwt_unique ON sessions (jwt)`); err != nil {
		return fmt.Errorf("create sessions_jwt_unique: %w", err)
	}
	return nil
}
