// Package store persists user override observations in SQLite so the
// learned decoding bias survives restarts.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bopokit/internal/override"
)

// Schema for the override observation store.
const schema = `
CREATE TABLE IF NOT EXISTS overrides (
    signature    TEXT NOT NULL,
    value        TEXT NOT NULL,
    count        INTEGER NOT NULL,
    observed_at  INTEGER NOT NULL,
    PRIMARY KEY (signature, value)
);

CREATE INDEX IF NOT EXISTS idx_overrides_observed ON overrides(observed_at);
`

// Store is the SQLite override store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and
// applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveObservations replaces the stored rows with the given export. The
// write is transactional: a reader sees wholly the old or wholly the
// new snapshot.
func (s *Store) SaveObservations(records []override.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM overrides`); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO overrides (signature, value, count, observed_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Signature, r.Value, r.Count, r.Timestamp.Unix()); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
	}
	return tx.Commit()
}

// LoadObservations returns the stored rows oldest first, the order
// override.Model.Import expects.
func (s *Store) LoadObservations() ([]override.Record, error) {
	rows, err := s.db.Query(`
		SELECT signature, value, count, observed_at
		FROM overrides ORDER BY observed_at ASC, signature ASC`)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var out []override.Record
	for rows.Next() {
		var r override.Record
		var observedAt int64
		if err := rows.Scan(&r.Signature, &r.Value, &r.Count, &observedAt); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		r.Timestamp = time.Unix(observedAt, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return out, nil
}
