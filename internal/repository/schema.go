package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
)

const (
	tableUploads = "uploads"
	tableItems   = "production_items"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		status TEXT NOT NULL,
		parsing_method TEXT,
		items_saved INTEGER NOT NULL DEFAULT 0,
		rejected_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		column_mapping TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		processing_ms INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS production_items (
		id TEXT PRIMARY KEY,
		upload_id TEXT NOT NULL REFERENCES uploads(id),
		seq INTEGER NOT NULL,
		source_row INTEGER NOT NULL,
		order_number TEXT NOT NULL,
		style TEXT,
		fabric TEXT,
		color TEXT,
		quantity REAL NOT NULL,
		status TEXT NOT NULL,
		timeline TEXT NOT NULL,
		raw_context TEXT NOT NULL,
		parsing_method TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS production_items_created_seq ON production_items (created_at, seq)`,
	`CREATE INDEX IF NOT EXISTS uploads_started_at ON uploads (started_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS uploads (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		status TEXT NOT NULL,
		parsing_method TEXT,
		items_saved INTEGER NOT NULL DEFAULT 0,
		rejected_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		column_mapping JSONB,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		processing_ms BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS production_items (
		id UUID PRIMARY KEY,
		upload_id UUID NOT NULL REFERENCES uploads(id),
		seq BIGINT NOT NULL,
		source_row INTEGER NOT NULL,
		order_number TEXT NOT NULL,
		style TEXT,
		fabric TEXT,
		color TEXT,
		quantity DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		timeline JSONB NOT NULL,
		raw_context JSONB NOT NULL,
		parsing_method TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS production_items_created_seq ON production_items (created_at, seq)`,
	`CREATE INDEX IF NOT EXISTS uploads_started_at ON uploads (started_at)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	stmts := sqliteSchema
	if db.dialect == dialect.Postgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			logger.Error("repository.migrate.failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("repository.migrate.ok", "dialect", db.dialect, "statements", len(stmts))
	return nil
}

// timestamp scans TIMESTAMP columns from either store. modernc returns
// time.Time for declared TIMESTAMP columns but older files may hold text.
type timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case int64:
		t.Time, t.Valid = time.Unix(v, 0).UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("timestamp: unsupported type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

// nullable maps zero values to SQL NULL.
func nullable(s string) driver.Value {
	if s == "" {
		return nil
	}
	return s
}
