// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package postgres implements memento.Store on PostgreSQL for hosts that
// share extension state across machines.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/quayside/quayside/internal/memento"
)

// Compile-time interface check.
var _ memento.Store = (*Store)(nil)

// poolIface is the subset of pgxpool.Pool the store uses.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements memento.Store using PostgreSQL.
type Store struct {
	pool poolIface
}

// New wraps an existing pool.
func New(pool poolIface) *Store {
	return &Store{pool: pool}
}

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// MaxRetries bounds the ping attempts made while the server comes up.
	MaxRetries uint64
	// Backoff is the base delay between attempts; it doubles each time.
	Backoff time.Duration
}

// Connect opens a pool for dsn and waits until the server answers a ping.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*Store, error) {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.In("postgres").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(opts.Backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.In("postgres").With("operation", "ping").Wrap(err)
	}
	return New(pool), nil
}

func wrap(err error, operation string, key string) error {
	b := oops.In("postgres").With("operation", operation)
	if key != "" {
		b = b.With("key", key)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		b = b.Hint("the memento schema is missing; run `quayside migrate up`")
	}
	return b.Wrap(err)
}

// Get implements memento.Store.
func (s *Store) Get(ctx context.Context, key memento.Key) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM memento WHERE scope = $1 AND extension_id = $2 AND key = $3`,
		string(key.Scope), key.ExtensionID, key.Name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(err, "get", key.Name)
	}
	return value, true, nil
}

// Set implements memento.Store.
func (s *Store) Set(ctx context.Context, key memento.Key, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memento (scope, extension_id, key, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scope, extension_id, key) DO UPDATE SET value = $4, updated_at = now()`,
		string(key.Scope), key.ExtensionID, key.Name, value)
	if err != nil {
		return wrap(err, "set", key.Name)
	}
	return nil
}

// Delete implements memento.Store.
func (s *Store) Delete(ctx context.Context, key memento.Key) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM memento WHERE scope = $1 AND extension_id = $2 AND key = $3`,
		string(key.Scope), key.ExtensionID, key.Name)
	if err != nil {
		return wrap(err, "delete", key.Name)
	}
	return nil
}

// Keys implements memento.Store.
func (s *Store) Keys(ctx context.Context, p memento.Partition) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM memento WHERE scope = $1 AND extension_id = $2 ORDER BY key`,
		string(p.Scope), p.ExtensionID)
	if err != nil {
		return nil, wrap(err, "keys", "")
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, wrap(err, "scan key", "")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "iterate keys", "")
	}
	return keys, nil
}

// Clear implements memento.Store.
func (s *Store) Clear(ctx context.Context, p memento.Partition) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM memento WHERE scope = $1 AND extension_id = $2`,
		string(p.Scope), p.ExtensionID)
	if err != nil {
		return wrap(err, "clear", "")
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
