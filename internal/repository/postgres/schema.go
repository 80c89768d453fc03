package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_username_key UNIQUE (username)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id            TEXT PRIMARY KEY,
		msg           TEXT NOT NULL CHECK (btrim(msg) <> ''),
		msg_from      TEXT NOT NULL,
		msg_date_time TIMESTAMPTZ NOT NULL,
		type          TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS chats (
		id           TEXT PRIMARY KEY,
		participants TEXT[] NOT NULL CHECK (cardinality(participants) > 0),
		messages     TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS chats_participants_idx ON chats USING GIN (participants)`,
}

// Migrate creates the chat schema if it does not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, query := range migrations {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
