package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "accounts table",
		sql: `
		CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(255) NOT NULL UNIQUE,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			loyalty_points BIGINT NOT NULL DEFAULT 0,
			coin BIGINT NOT NULL DEFAULT 0,
			coin_adjustment BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT accounts_coin_tracks_loyalty CHECK (coin = loyalty_points + coin_adjustment)
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_points ON accounts(loyalty_points DESC, id ASC);
		`,
	},
	{
		name: "ledger_entries table",
		sql: `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			loyalty_delta BIGINT NOT NULL,
			coin_delta BIGINT NOT NULL,
			reason VARCHAR(255) NOT NULL,
			kind VARCHAR(50) NOT NULL,
			actor_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ledger_entries_account_reason_key UNIQUE (account_id, reason)
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_account_time ON ledger_entries(account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_kind_time ON ledger_entries(kind, created_at DESC);
		`,
	},
	{
		name: "ledger_entries balance snapshot",
		sql: `
		ALTER TABLE ledger_entries
			ADD COLUMN IF NOT EXISTS loyalty_after BIGINT NOT NULL DEFAULT 0,
			ADD COLUMN IF NOT EXISTS coin_after BIGINT NOT NULL DEFAULT 0;
		`,
	},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Int("count", len(migrations)).Msg("Running database migrations")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed")
	return nil
}
