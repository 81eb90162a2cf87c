// Package store provides the embedded SQLite persistence layer for
// notebooks, notes, content blocks and deletion tombstones.
//
// The database runs in embedded mode using the ncruces sqlite3 driver with
// WAL enabled. Every mutation stamps a server-side revision (the
// system_updated_at column) and deletes additionally write a tombstone row
// inside the same transaction, so "what changed since revision R" is
// answerable for live rows and deleted rows alike.
//
// Timestamps are stored as INTEGER unix nanoseconds. RFC 3339 strings with
// variable-length fractional seconds do not sort lexicographically, and the
// whole sync protocol hinges on `system_updated_at > ?` range scans ordering
// correctly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection with sync-protocol specific operations.
type DB struct {
	conn *sql.DB
	path string

	// lastStamp guards the non-decreasing revision invariant against a
	// coarse wall clock: two back-to-back mutations must never receive
	// the same stamp.
	stampMu   sync.Mutex
	lastStamp int64
}

// Open creates a database connection at the given path, creating the
// parent directory if needed. The caller MUST call Close() when done.
//
// The pool is capped at a single connection: all access is serialized
// through the repo executor anyway, and one connection makes the
// transaction boundaries of create/delete trivially exclusive.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{
		conn: conn,
		path: path,
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables and revision indexes if they don't exist.
// Idempotent, safe to call on every startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notebooks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		system_updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',  -- JSON array
		notebook_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		system_updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_blocks (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,     -- content union tag: text, code
		content TEXT NOT NULL,  -- JSON payload of the active arm
		note_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		system_updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deletions (
		type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		system_updated_at INTEGER NOT NULL,
		PRIMARY KEY (type, resource_id)
	);

	-- Indexes for "revision > ?" range scans
	CREATE INDEX IF NOT EXISTS idx_notebooks_revision ON notebooks(system_updated_at);
	CREATE INDEX IF NOT EXISTS idx_notes_revision ON notes(system_updated_at);
	CREATE INDEX IF NOT EXISTS idx_content_blocks_revision ON content_blocks(system_updated_at);
	CREATE INDEX IF NOT EXISTS idx_deletions_revision ON deletions(system_updated_at);

	CREATE INDEX IF NOT EXISTS idx_notes_notebook ON notes(notebook_id);
	CREATE INDEX IF NOT EXISTS idx_content_blocks_note ON content_blocks(note_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// stampNow returns the revision stamp for a mutation happening now.
// Strictly increasing across calls on this DB.
func (db *DB) stampNow() time.Time {
	db.stampMu.Lock()
	defer db.stampMu.Unlock()

	now := time.Now().UTC().UnixNano()
	if now <= db.lastStamp {
		now = db.lastStamp + 1
	}
	db.lastStamp = now

	return time.Unix(0, now).UTC()
}

// toNanos converts a timestamp to its stored representation.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// fromNanos converts a stored timestamp back to a UTC time.
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
