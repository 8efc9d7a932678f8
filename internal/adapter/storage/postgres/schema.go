package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS game_sessions (
		identifier  TEXT PRIMARY KEY,
		token_hash  TEXT NOT NULL,
		consumed    BOOLEAN NOT NULL DEFAULT FALSE,
		issued_at   TIMESTAMPTZ NOT NULL,
		consumed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS points (
		identifier TEXT PRIMARY KEY,
		points     BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_points_leaderboard ON points (points DESC, identifier ASC)`,
	`CREATE TABLE IF NOT EXISTS awards (
		id          UUID PRIMARY KEY,
		identifier  TEXT NOT NULL,
		amount      BIGINT NOT NULL CHECK (amount > 0),
		total_after BIGINT NOT NULL,
		token_hash  TEXT NOT NULL UNIQUE,
		source      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_awards_identifier ON awards (identifier, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS reconciliations (
		id          UUID PRIMARY KEY,
		identifier  TEXT NOT NULL,
		amount      BIGINT NOT NULL CHECK (amount > 0),
		token_hash  TEXT NOT NULL UNIQUE,
		status      TEXT NOT NULL DEFAULT 'PENDING',
		last_error  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reconciliations_pending ON reconciliations (created_at) WHERE status = 'PENDING'`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            UUID PRIMARY KEY,
		identifier    TEXT,
		action        TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT,
		details       TEXT,
		ip_address    TEXT,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables and indexes the repositories rely on.
func Migrate(ctx context.Context, pool Pool, log zerolog.Logger) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %d: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("database schema up to date")
	return nil
}
