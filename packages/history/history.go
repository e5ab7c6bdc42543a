// Package history keeps a local SQLite ledger of completed pushes so
// past runs can be inspected without querying the Hub.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded push.
type Entry struct {
	ID         string
	RepoID     string
	ConfigName string
	Split      string
	Revision   string
	Rows       int
	Bytes      int64
	CommitOID  string
	CreatedAt  time.Time
}

// Store is the push ledger backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the ledger location under the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hfdsb", "history.db"), nil
}

// Open opens (and if needed creates) the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pushes (
			id          TEXT PRIMARY KEY,
			repo_id     TEXT NOT NULL,
			config_name TEXT NOT NULL,
			split       TEXT NOT NULL,
			revision    TEXT NOT NULL,
			rows        INTEGER NOT NULL,
			bytes       INTEGER NOT NULL,
			commit_oid  TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts one completed push. The entry's ID and CreatedAt are
// assigned here.
func (s *Store) Record(e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO pushes (id, repo_id, config_name, split, revision, rows, bytes, commit_oid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RepoID, e.ConfigName, e.Split, e.Revision, e.Rows, e.Bytes, e.CommitOID, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record push: %w", err)
	}
	return e, nil
}

// Recent returns the latest pushes, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, repo_id, config_name, split, revision, rows, bytes, commit_oid, created_at
		FROM pushes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RepoID, &e.ConfigName, &e.Split, &e.Revision,
			&e.Rows, &e.Bytes, &e.CommitOID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
