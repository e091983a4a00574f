// Package database owns the pgx connection pool and the schema bootstrap.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the catalog and contact tables if needed. Keeping the
// migration in code lets docker-compose bootstrap everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS gallery_files (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	original_path TEXT NOT NULL UNIQUE,
	file_type TEXT NOT NULL,
	content_type TEXT NOT NULL,
	file_size TEXT NOT NULL DEFAULT '0',
	is_converted BOOLEAN NOT NULL DEFAULT FALSE,
	object_storage_url TEXT,
	local_path TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gallery_files_content_type ON gallery_files(content_type);

CREATE TABLE IF NOT EXISTS contact_inquiries (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	address TEXT NOT NULL,
	monthly_bill TEXT NOT NULL,
	message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
