// Package store caches computed pipeline bundles in SQLite so repeat
// sessions over unchanged input files skip the parse/join/analyze pass.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/geosalud/acceso/internal/model"
)

// Store is a TTL bundle cache backed by modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at the given path and
// configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS bundle_cache (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	payload     TEXT NOT NULL,
	computed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundle_cache_expires_at ON bundle_cache(expires_at);
`

// Migrate creates the cache schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetBundle returns the cached bundle for a fingerprint, or nil on a miss.
// Expired and undecodable entries count as misses; undecodable entries are
// removed so they cannot shadow a fresh recompute.
func (s *Store) GetBundle(ctx context.Context, fingerprint string) (*model.Bundle, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM bundle_cache WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, time.Now().UTC(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: query bundle")
	}

	var bundle model.Bundle
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		zap.L().Warn("store: corrupt cache entry, treating as miss",
			zap.String("fingerprint", fingerprint), zap.Error(err))
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bundle_cache WHERE fingerprint = ?`, fingerprint)
		return nil, nil
	}
	return &bundle, nil
}

// PutBundle stores a bundle under a fingerprint with the given TTL,
// replacing any previous entry for that fingerprint.
func (s *Store) PutBundle(ctx context.Context, fingerprint string, bundle *model.Bundle, ttl time.Duration) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return eris.Wrap(err, "store: marshal bundle")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bundle_cache (id, fingerprint, payload, computed_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			payload = excluded.payload,
			computed_at = excluded.computed_at,
			expires_at = excluded.expires_at`,
		uuid.New().String(), fingerprint, string(payload), now, now.Add(ttl),
	)
	if err != nil {
		return eris.Wrap(err, "store: insert bundle")
	}
	return nil
}

// Purge deletes expired cache entries and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bundle_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "store: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "store: purge rows affected")
	}
	return n, nil
}
