package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are idempotent so every binary can run the bootstrap at
// startup without coordination.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		username    TEXT NOT NULL UNIQUE,
		balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_bot      BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS market_listings (
		id          BIGSERIAL PRIMARY KEY,
		seller_id   BIGINT NOT NULL REFERENCES users(id),
		name        TEXT NOT NULL,
		price       BIGINT NOT NULL CHECK (price > 0),
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		is_sold     BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS estate_listings (
		id          BIGSERIAL PRIMARY KEY,
		seller_id   BIGINT NOT NULL REFERENCES users(id),
		title       TEXT NOT NULL,
		price       BIGINT NOT NULL CHECK (price > 0),
		address     TEXT NOT NULL DEFAULT '',
		rooms       INT NOT NULL DEFAULT 1,
		area        DOUBLE PRECISION NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		is_sold     BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id),
		deposit_name TEXT NOT NULL,
		amount       BIGINT NOT NULL CHECK (amount > 0),
		rate         DOUBLE PRECISION NOT NULL,
		term_months  INT NOT NULL CHECK (term_months > 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id           BIGSERIAL PRIMARY KEY,
		from_user_id BIGINT NOT NULL REFERENCES users(id),
		to_user_id   BIGINT NOT NULL REFERENCES users(id),
		amount       BIGINT NOT NULL CHECK (amount > 0),
		type         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		user_id    BIGINT NOT NULL REFERENCES users(id),
		key        TEXT NOT NULL,
		action     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_listings_unsold
		ON market_listings (created_at DESC) WHERE is_sold = false`,
	`CREATE INDEX IF NOT EXISTS idx_estate_listings_unsold
		ON estate_listings (created_at DESC) WHERE is_sold = false`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions (from_user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions (to_user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits (user_id)`,
}

// Bootstrap creates the tables and indexes the services expect.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
