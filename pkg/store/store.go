// Package store opens the shared SQLite database and owns its schema.
// All durable state (budget periods, schedule state, the interaction
// ledger) lives in one file so a single synchronous write path covers
// every component.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the shared database handle.
type Store struct {
	db          *sql.DB
	freshLedger bool
}

const schema = `
CREATE TABLE IF NOT EXISTS budget_period (
	period_id      TEXT PRIMARY KEY,
	units_consumed INTEGER NOT NULL DEFAULT 0,
	ceiling        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_state (
	task_id  TEXT PRIMARY KEY,
	last_run TIMESTAMP
);

CREATE TABLE IF NOT EXISTS interaction_ledger (
	interaction_id   TEXT PRIMARY KEY,
	interaction_type TEXT NOT NULL DEFAULT 'mention',
	author_id        TEXT,
	first_seen       TIMESTAMP NOT NULL,
	handled          BOOLEAN NOT NULL DEFAULT 0,
	response_ref     TEXT,
	handled_at       TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ledger_first_seen ON interaction_ledger(first_seen);
CREATE INDEX IF NOT EXISTS idx_ledger_author ON interaction_ledger(author_id);
`

// Open opens (or creates) the database at dbPath and runs auto-migration.
// It records whether the interaction ledger existed before migration, so
// the ledger can report a wiped-storage start instead of silently masking
// lost history.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	fresh, err := tableMissing(db, "interaction_ledger")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &Store{db: db, freshLedger: fresh}, nil
}

func tableMissing(db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// DB returns the shared database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FreshLedger reports whether the interaction ledger table was created by
// this process, i.e. any previous history is gone.
func (s *Store) FreshLedger() bool {
	return s.freshLedger
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
