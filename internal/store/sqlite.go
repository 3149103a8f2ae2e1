package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/msgedit/internal/domain"
)

//go:embed schema.sql
var schema string

// Store keeps work snapshots in SQLite, one value per key
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and writes serialized
	db.SetMaxOpenConns(1)

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key. ok is false when there is none.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow("SELECT value FROM snapshots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get snapshot: %w", err)
	}
	return value, true, nil
}

// Set stores value under key. A revision is recorded when the value changed.
func (s *Store) Set(key, value string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRow("SELECT value FROM snapshots WHERE key = ?", key).Scan(&current)
	switch {
	case err == nil && current == value:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("read snapshot: %w", err)
	}

	now := s.now().UTC()
	if _, err := tx.Exec(
		`INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO revisions (id, key, size, created_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), key, len(value), now,
	); err != nil {
		return fmt.Errorf("record revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Remove deletes the value under key and its history
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM revisions WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove revisions: %w", err)
	}
	return nil
}

// History returns the most recent revisions of key, newest first
func (s *Store) History(key string, limit int) ([]domain.Revision, error) {
	rows, err := s.db.Query(
		"SELECT id, key, size, created_at FROM revisions WHERE key = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.Revision
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.Key, &r.Size, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}

	return revs, rows.Err()
}
