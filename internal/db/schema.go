package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrateLock serializes schema setup when the server and the autoplay
// worker start together.
const migrateLock int64 = 0x7471_5361_7665

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS saves (
		slot       TEXT PRIMARY KEY,
		player     TEXT NOT NULL DEFAULT '',
		game_date  TIMESTAMPTZ NOT NULL,
		balance    NUMERIC(20, 2) NOT NULL DEFAULT 0,
		deceased   BOOLEAN NOT NULL DEFAULT FALSE,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at DESC)`,
}

// Migrate creates the save tables. It is safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrateLock); err != nil {
			return fmt.Errorf("migration lock: %w", err)
		}
		for i, stmt := range migrations {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", i, err)
			}
		}
		return nil
	})
}
