// Package assets provides the SQLite-backed asset reference store and the
// history of relink runs.
package assets

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	path       TEXT NOT NULL DEFAULT '',
	embedded   INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS relink_runs (
	id         TEXT PRIMARY KEY,
	root       TEXT NOT NULL,
	examined   INTEGER NOT NULL DEFAULT 0,
	relinked   INTEGER NOT NULL DEFAULT 0,
	missing    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS relink_rewrites (
	run_id     TEXT NOT NULL REFERENCES relink_runs(id) ON DELETE CASCADE,
	asset_id   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	old_path   TEXT NOT NULL,
	new_path   TEXT NOT NULL,
	match_kind TEXT NOT NULL DEFAULT 'exact'
);

CREATE INDEX IF NOT EXISTS idx_rewrites_run ON relink_rewrites(run_id);
`

// DB wraps a sql.DB with asset-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("assets: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assets: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assets: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
