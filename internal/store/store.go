// Package store opens the PostgreSQL connection and maintains the schema
// for share links and favorites.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS shares (
	id SERIAL PRIMARY KEY,
	token TEXT NOT NULL UNIQUE,
	owner_account_id TEXT NOT NULL,
	source_path TEXT NOT NULL,
	visibility TEXT NOT NULL DEFAULT 'public',
	password_hash TEXT,
	recipients TEXT[] NOT NULL DEFAULT '{}',
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (owner_account_id, source_path)
);

CREATE TABLE IF NOT EXISTS favorites (
	account_id TEXT PRIMARY KEY,
	doc JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Open connects to PostgreSQL, verifies the connection, and ensures the
// schema exists.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
