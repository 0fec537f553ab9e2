// Package cache is a content-addressed key-value store shared by providers.
// Keys are normalized to SHA-256 hex digests before storage, so arbitrarily
// long canonical request strings collapse to fixed-width identifiers.
// Entries never expire and are never invalidated except by deleting the
// store file; determinism for idempotent requests is favoured over
// staleness protection.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pearllabs/lolo/internal/infra/sqlite"
)

// Store is a single-table durable KV store. Each Get/Put is a short
// auto-committing statement; concurrent Put of the same key is
// last-write-wins, serialized by sqlite itself.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the cache database at path and ensures the kv
// table exists.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache.Open: %w", err)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache.Open: create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the payload stored under key, or ok=false when absent.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = ?", hashKey(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.Get: %w", err)
	}
	return json.RawMessage(v), true, nil
}

// Put stores value under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		"REPLACE INTO kv (k, v) VALUES (?, ?)", hashKey(key), string(value))
	if err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}
	return nil
}

// hashKey normalizes a raw key to its SHA-256 hex digest.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
