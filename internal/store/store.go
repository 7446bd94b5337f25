package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the persistence layer: transactions keyed for dedup plus the
// sync-run log. Backed by a local SQLite database; the UNIQUE constraint on
// (owner_id, source_message_id) is the sole mechanism protecting against
// duplicate inserts when concurrent runs for the same owner race.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path and runs
// migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("Open: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("Open: open sqlite: %w", err)
	}

	// WAL improves concurrent read behavior while a sync is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                 TEXT PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	merchant           TEXT NOT NULL,
	category           TEXT NOT NULL,
	transaction_type   TEXT NOT NULL,
	original_amount    REAL NOT NULL,
	original_currency  TEXT NOT NULL,
	display_amount     REAL NOT NULL,
	display_currency   TEXT NOT NULL,
	tx_date            TEXT NOT NULL,
	tx_time            TEXT NOT NULL DEFAULT '',
	card_last4         TEXT NOT NULL DEFAULT '',
	account_last4      TEXT NOT NULL DEFAULT '',
	institution        TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	confidence         REAL NOT NULL DEFAULT 0.5,
	source_message_id  TEXT NOT NULL,
	source_subject     TEXT NOT NULL DEFAULT '',
	source_date        TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	UNIQUE(owner_id, source_message_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_owner_date
	ON transactions(owner_id, tx_date);

CREATE TABLE IF NOT EXISTS sync_runs (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	started_at          TEXT NOT NULL,
	completed_at        TEXT,
	messages_fetched    INTEGER NOT NULL DEFAULT 0,
	messages_processed  INTEGER NOT NULL DEFAULT 0,
	transactions_found  INTEGER NOT NULL DEFAULT 0,
	transactions_saved  INTEGER NOT NULL DEFAULT 0,
	duplicates_skipped  INTEGER NOT NULL DEFAULT 0,
	error_count         INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	error_details       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_owner_started
	ON sync_runs(owner_id, started_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
