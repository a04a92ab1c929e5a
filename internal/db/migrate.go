// Package db owns the relational schema. Migrate is idempotent and runs
// at startup; the unique constraints it declares are load-bearing (the
// suffix allocator and registration pre-checks are optimizations, these
// constraints are the real guard).
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   UUID PRIMARY KEY,
	name                 TEXT NOT NULL,
	email                TEXT NOT NULL,
	password_hash        TEXT NOT NULL,
	role                 TEXT NOT NULL DEFAULT 'user',
	total_clicks         BIGINT NOT NULL DEFAULT 0,
	unique_country_count BIGINT NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_email_unique UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS links (
	id            UUID PRIMARY KEY,
	user_id       UUID REFERENCES users (id),
	name          TEXT,
	original_url  TEXT NOT NULL,
	custom_suffix TEXT NOT NULL,
	clicks        BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT links_custom_suffix_unique UNIQUE (custom_suffix)
);

CREATE INDEX IF NOT EXISTS links_user_created_idx
	ON links (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS visits (
	link_id UUID NOT NULL REFERENCES links (id),
	country TEXT NOT NULL,
	count   BIGINT NOT NULL DEFAULT 1 CHECK (count >= 1),
	PRIMARY KEY (link_id, country)
);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
