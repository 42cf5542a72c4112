// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package sqlite implements memento.Store on an embedded SQLite database. It
// is the default store when no database server is configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/memento"
)

// Compile-time interface check.
var _ memento.Store = (*Store)(nil)

// Store implements memento.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, oops.In("sqlite").With("path", path).Wrapf(err, "open memento database")
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, oops.In("sqlite").With("path", path).Wrapf(err, "ping memento database")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, oops.In("sqlite").With("path", path).Wrapf(err, "migrate memento database")
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS memento (
	scope        TEXT NOT NULL,
	extension_id TEXT NOT NULL,
	key          TEXT NOT NULL,
	value        BLOB NOT NULL,
	updated_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (scope, extension_id, key)
);
`
	_, err := db.Exec(ddl)
	return err
}

// Get implements memento.Store.
func (s *Store) Get(ctx context.Context, key memento.Key) ([]byte, bool, error) {
	const q = `SELECT value FROM memento WHERE scope = ? AND extension_id = ? AND key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, q, string(key.Scope), key.ExtensionID, key.Name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, oops.In("sqlite").With("operation", "get").With("key", key.Name).Wrap(err)
	}
	return value, true, nil
}

// Set implements memento.Store.
func (s *Store) Set(ctx context.Context, key memento.Key, value []byte) error {
	const q = `INSERT INTO memento (scope, extension_id, key, value)
VALUES (?, ?, ?, ?)
ON CONFLICT (scope, extension_id, key) DO UPDATE SET
	value = excluded.value,
	updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

	if _, err := s.db.ExecContext(ctx, q, string(key.Scope), key.ExtensionID, key.Name, value); err != nil {
		return oops.In("sqlite").With("operation", "set").With("key", key.Name).Wrap(err)
	}
	return nil
}

// Delete implements memento.Store.
func (s *Store) Delete(ctx context.Context, key memento.Key) error {
	const q = `DELETE FROM memento WHERE scope = ? AND extension_id = ? AND key = ?`

	if _, err := s.db.ExecContext(ctx, q, string(key.Scope), key.ExtensionID, key.Name); err != nil {
		return oops.In("sqlite").With("operation", "delete").With("key", key.Name).Wrap(err)
	}
	return nil
}

// Keys implements memento.Store.
func (s *Store) Keys(ctx context.Context, p memento.Partition) ([]string, error) {
	const q = `SELECT key FROM memento WHERE scope = ? AND extension_id = ? ORDER BY key`

	rows, err := s.db.QueryContext(ctx, q, string(p.Scope), p.ExtensionID)
	if err != nil {
		return nil, oops.In("sqlite").With("operation", "keys").Wrap(err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, oops.In("sqlite").With("operation", "scan key").Wrap(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("sqlite").With("operation", "iterate keys").Wrap(err)
	}
	return keys, nil
}

// Clear implements memento.Store.
func (s *Store) Clear(ctx context.Context, p memento.Partition) error {
	const q = `DELETE FROM memento WHERE scope = ? AND extension_id = ?`

	if _, err := s.db.ExecContext(ctx, q, string(p.Scope), p.ExtensionID); err != nil {
		return oops.In("sqlite").With("operation", "clear").Wrap(err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
