// Package db provides SQLite storage for reconciliation run history.
package db

import (
	"database/sql"
	"fmt"
)

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Runs table
-- One row per reconcile invocation, successful or not
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,               -- UUID
    source_file TEXT NOT NULL,         -- COMS export used
    workbook TEXT NOT NULL,            -- forecast workbook path
    dry_run INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,              -- 'running', 'succeeded' or 'failed'
    error TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started
    ON runs(started_at);

-- Group runs table
-- Row counts per group for a run
CREATE TABLE IF NOT EXISTS group_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    group_name TEXT NOT NULL,
    prior_rows INTEGER NOT NULL,
    incoming_rows INTEGER NOT NULL,
    final_rows INTEGER NOT NULL,
    added_rows INTEGER NOT NULL,
    py_rows INTEGER NOT NULL,
    UNIQUE(run_id, group_name)
);

CREATE INDEX IF NOT EXISTS idx_group_runs_run
    ON group_runs(run_id);
`

// SchemaVersion is stored in PRAGMA user_version once Schema is applied.
const SchemaVersion = 1

// InitializeSchema applies Schema to a database older than SchemaVersion.
// A database written by a newer version is rejected.
func InitializeSchema(conn *Connection) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	switch {
	case version == SchemaVersion:
		return nil
	case version > SchemaVersion:
		return fmt.Errorf("history database schema v%d is newer than supported v%d", version, SchemaVersion)
	}

	return conn.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(Schema); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	})
}
