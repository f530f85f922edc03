// Package sqlite backs both tiers with one SQLite database: the kv table
// holds the durable medium and the records table holds content records.
// It uses the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/peermall/peerstore/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS records_address ON records(address, created_at, id);
`

// Store is an open SQLite database implementing core.Medium.
// Records returns the record service sharing the same database.
type Store struct {
	db       *sql.DB
	path     string
	maxBytes int64
	now      func() time.Time

	mu sync.Mutex
}

// Open opens (creating if needed) the database at path. maxBytes bounds the
// summed size of kv keys and values; zero means unbounded.
func Open(path string, maxBytes int64) (*Store, error) {
	if path == "" {
		path = "peerstore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY away from concurrent managers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *Store) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &core.OpError{Op: "get", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return value, true, nil
}

func (s *Store) SetItem(key, value string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if s.maxBytes > 0 {
		var used int64
		if err := tx.QueryRow(`SELECT COALESCE(SUM(length(key) + length(value)), 0) FROM kv WHERE key <> ?`, key).Scan(&used); err != nil {
			return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
		}
		if need := used + int64(len(key)+len(value)); need > s.maxBytes {
			return core.Errorf("set", key, core.ErrQuotaExceeded, "%d bytes would exceed the %d byte ceiling", need, s.maxBytes)
		}
	}

	if _, err := tx.Exec(`INSERT INTO kv(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
		return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &core.OpError{Op: "remove", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return nil
}

// Records returns the content record service stored in the same database.
func (s *Store) Records() *RecordService {
	return &RecordService{store: s}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path"`
	Keys     int    `json:"keys"`
	Records  int    `json:"records"`
	MaxBytes int64  `json:"max_bytes,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	state := StoreState{Path: s.path, MaxBytes: s.maxBytes}
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&state.Keys)
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&state.Records)
	return state
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sqlite-medium"
}

var (
	_ core.Medium                  = (*Store)(nil)
	_ core.Closer                  = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
)
