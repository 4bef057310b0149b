// Package clientcache provides the persistent, time-boxed cache used by the
// client views. Payloads are stored as JSON blobs with the fetch timestamp so
// they survive restarts and can serve as a stale fallback when a refresh fails.
package clientcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Entry is one cached snapshot for a data domain.
type Entry struct {
	Key       string
	Payload   json.RawMessage
	FetchedAt int64 // epoch milliseconds
}

// Store persists cache entries across restarts.
type Store interface {
	// Get returns the entry for key regardless of age, or nil if absent.
	Get(key string) (*Entry, error)
	// Put creates or overwrites the entry for key.
	Put(key string, payload json.RawMessage, fetchedAt int64) error
	// Delete removes a single entry.
	Delete(key string) error
	// Clear removes every entry. Used by session teardown.
	Clear() error
	// DeleteExpired removes entries fetched more than maxAge ago.
	// Returns the number of rows deleted.
	DeleteExpired(maxAge time.Duration) (int64, error)
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key        TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_fetched ON cache_entries(fetched_at);
`

// SQLiteStore is the Store implementation backed by a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (or creates) the store at path.
// Use ":memory:" for an ephemeral store in tests.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache store schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get returns the entry for key regardless of age, or nil if absent.
func (s *SQLiteStore) Get(key string) (*Entry, error) {
	var payload string
	var fetchedAt int64
	err := s.db.QueryRow(
		"SELECT payload, fetched_at FROM cache_entries WHERE key = ?", key,
	).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return &Entry{Key: key, Payload: json.RawMessage(payload), FetchedAt: fetchedAt}, nil
}

// Put creates or overwrites the entry for key.
func (s *SQLiteStore) Put(key string, payload json.RawMessage, fetchedAt int64) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO cache_entries (key, payload, fetched_at) VALUES (?, ?, ?)",
		key, string(payload), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes a single entry.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry in one statement so a logout can never leave a
// partially cleared store behind.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("failed to clear cache store: %w", err)
	}
	return nil
}

// DeleteExpired removes entries fetched more than maxAge ago.
func (s *SQLiteStore) DeleteExpired(maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	result, err := s.db.Exec("DELETE FROM cache_entries WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
