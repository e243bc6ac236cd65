package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// KVStore is the process-wide key/value store behind the catalog. It has two
// independent namespaces: a durable one backed by SQLite that survives
// restarts, and a transient in-process one cleared when the store closes
// (used to retain full-resolution upload originals for the session only).
//
// The durable namespace carries its own medium-level byte ceiling, independent
// of the repository's logical quota: Set can fail with ErrQuotaExceeded even
// after a quota pre-check passed, which is what triggers degraded commits.
type KVStore struct {
	db    *sql.DB
	limit int64 // durable ceiling in bytes; 0 means unlimited

	mu        sync.RWMutex
	transient map[string][]byte
}

// OpenKV opens (or creates) the durable store at path, ensures the data
// directory exists, and applies the schema.
func OpenKV(path string, limit int64) (*KVStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy_timeout so writers wait
	// instead of failing with SQLITE_BUSY, synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL
);
`); err != nil {
		return nil, err
	}

	return &KVStore{
		db:        db,
		limit:     limit,
		transient: make(map[string][]byte),
	}, nil
}

// Close clears the transient namespace and closes the database.
func (s *KVStore) Close() error {
	s.ClearTransient()
	return s.db.Close()
}

// Get returns the durable value for key, or nil if the key is absent.
func (s *KVStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set writes value under key in the durable namespace. When the store has a
// byte ceiling, a write that would push total durable usage past it fails
// with ErrQuotaExceeded and leaves the prior value untouched.
func (s *KVStore) Set(key string, value []byte) error {
	if s.limit > 0 {
		used, err := s.usedExcluding(key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > s.limit {
			return fmt.Errorf("%w: %d byte write over %d byte store ceiling", ErrQuotaExceeded, len(value), s.limit)
		}
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Remove deletes key from the durable namespace. Removing an absent key is a
// no-op.
func (s *KVStore) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// ClearAll empties both namespaces.
func (s *KVStore) ClearAll() error {
	s.ClearTransient()
	_, err := s.db.Exec(`DELETE FROM kv`)
	return err
}

// UsedBytes returns the total durable footprint (keys plus values).
func (s *KVStore) UsedBytes() (int64, error) {
	var used int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv`).Scan(&used)
	return used, err
}

// ValueSize returns the stored size of a single durable value, 0 if absent.
func (s *KVStore) ValueSize(key string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT LENGTH(value) FROM kv WHERE key = ?`, key).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (s *KVStore) usedExcluding(key string) (int64, error) {
	var used int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE key != ?`, key).Scan(&used)
	return used, err
}

// TransientSet stores a session-scoped value. Transient data never counts
// against the durable ceiling or the logical quota.
func (s *KVStore) TransientSet(key string, value []byte) {
	s.mu.Lock()
	s.transient[key] = value
	s.mu.Unlock()
}

// TransientGet returns a session-scoped value, or nil if absent.
func (s *KVStore) TransientGet(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transient[key]
}

// TransientRemove deletes a session-scoped value.
func (s *KVStore) TransientRemove(key string) {
	s.mu.Lock()
	delete(s.transient, key)
	s.mu.Unlock()
}

// ClearTransient drops every session-scoped value.
func (s *KVStore) ClearTransient() {
	s.mu.Lock()
	s.transient = make(map[string][]byte)
	s.mu.Unlock()
}
