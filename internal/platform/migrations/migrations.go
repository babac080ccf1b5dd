// Package migrations applies the database schema at boot. Statements are
// idempotent so repeated application is safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// statements is the full schema in application order. The unique indexes are
// load-bearing: (habit_id, completed_on) makes completion toggles idempotent
// and (user_id, earned_on) is the exactly-once guard for awards under
// concurrent toggles.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		name       TEXT NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS habit_completions (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id),
		habit_id     TEXT NOT NULL REFERENCES habits(id),
		completed_on DATE NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (habit_id, completed_on)
	)`,
	`CREATE TABLE IF NOT EXISTS collectible_awards (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES users(id),
		collectible_id TEXT NOT NULL,
		earned_on      DATE NOT NULL,
		percentage     INTEGER NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, earned_on)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_completions_user_day ON habit_completions (user_id, completed_on)`,
	`CREATE INDEX IF NOT EXISTS idx_awards_user ON collectible_awards (user_id, earned_on DESC)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
