package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS actions (
	id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	type text NOT NULL,
	value text[] NOT NULL DEFAULT '{}',
	target text[] NOT NULL DEFAULT '{}',
	public boolean NOT NULL DEFAULT false
)`,
	`CREATE TABLE IF NOT EXISTS rules (
	id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	type text NOT NULL,
	regexes text[] NOT NULL DEFAULT '{}',
	actions bigint[] NOT NULL DEFAULT '{}',
	public boolean NOT NULL DEFAULT false
)`,
	`CREATE INDEX IF NOT EXISTS rules_type_idx ON rules (type)`,
	`CREATE TABLE IF NOT EXISTS ledger_users (
	id bigint PRIMARY KEY,
	points bigint NOT NULL DEFAULT 0,
	last_activity timestamptz NOT NULL DEFAULT NOW()
)`,
}

// Migrate applies the schema. Statements are idempotent, so calling it
// on every startup is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
