package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schema creates both tables and seeds the fallback user that unauthenticated
// requests are attributed to.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS recipes (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	title        TEXT NOT NULL CHECK (title <> ''),
	source_url   TEXT,
	ingredients  JSONB NOT NULL DEFAULT '[]'::jsonb,
	instructions TEXT,
	prep_time    TEXT,
	servings     TEXT,
	image_url    TEXT,
	host         TEXT,
	notes        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS recipes_user_created_idx ON recipes (user_id, created_at DESC)`,
	`INSERT INTO users (id, username, email)
	VALUES (1, 'default', 'default@localhost')
	ON CONFLICT (id) DO NOTHING`,
	// keep BIGSERIAL ahead of the explicitly seeded id
	`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`,
}

// Migrate creates the schema if it does not exist. It is idempotent.
func (s *RecipeStore) Migrate(ctx context.Context) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
