package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// schema is applied in order on every start; each statement is idempotent.
var schema = []struct {
	name string
	sql  string
}{
	{"records table", `
		CREATE TABLE IF NOT EXISTS records (
			id UUID PRIMARY KEY,
			collection TEXT NOT NULL,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"collection index", `CREATE INDEX IF NOT EXISTS idx_records_collection_created ON records (collection, created_at DESC)`},
	{"document index", `CREATE INDEX IF NOT EXISTS idx_records_data ON records USING GIN (data jsonb_path_ops)`},
	{"unique user email", `
		CREATE UNIQUE INDEX IF NOT EXISTS ux_records_user_email
		ON records ((data->>'email')) WHERE collection = 'user'`},
	{"unique user token", `
		CREATE UNIQUE INDEX IF NOT EXISTS ux_records_user_token
		ON records ((data->>'token')) WHERE collection = 'user' AND COALESCE(data->>'token', '') <> ''`},
}

// EnsureSchema creates the records table and its indexes if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, step := range schema {
		if _, err := db.ExecContext(ctx, step.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", step.name, err)
		}
	}
	return nil
}
