// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package postgres

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5:// driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

// Migration error codes.
const (
	CodeMigrationSource  = "MIGRATION_SOURCE_FAILED"
	CodeMigrationInit    = "MIGRATION_INIT_FAILED"
	CodeMigrationUp      = "MIGRATION_UP_FAILED"
	CodeMigrationDown    = "MIGRATION_DOWN_FAILED"
	CodeMigrationVersion = "MIGRATION_VERSION_FAILED"
	CodeMigrationForce   = "MIGRATION_FORCE_FAILED"
	CodeMigrationClose   = "MIGRATION_CLOSE_FAILED"
	CodeInvalidVersion   = "INVALID_VERSION"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var postgresSchemes = []string{"postgres://", "postgresql://"}

// schemaMigrate is the part of *migrate.Migrate the Migrator drives.
type schemaMigrate interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies and inspects the memento schema.
type Migrator struct {
	m schemaMigrate
}

// MigrateURL rewrites a postgres DSN to the pgx5:// scheme the migrate
// driver registers. Other URLs pass through.
func MigrateURL(dsn string) string {
	for _, scheme := range postgresSchemes {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// NewMigrator opens a Migrator over the embedded migrations.
func NewMigrator(dsn string) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code(CodeMigrationSource).In("memento").Wrapf(err, "open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(dsn))
	if err != nil {
		_ = src.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code(CodeMigrationInit).In("memento").Wrapf(err, "connect migrator")
	}
	return &Migrator{m: m}, nil
}

// applied treats "nothing to do" as success.
func applied(code string, err error) error {
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return oops.Code(code).In("memento").Wrap(err)
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return applied(CodeMigrationUp, m.m.Up())
}

// Down reverts every migration. Stored values are lost.
func (m *Migrator) Down() error {
	return applied(CodeMigrationDown, m.m.Down())
}

// Version reports the applied schema version, 0 on an empty database, and
// whether a migration stopped halfway.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code(CodeMigrationVersion).In("memento").Wrap(err)
	}
	return v, dirty, nil
}

// Force marks version as applied and clears the dirty flag without running
// any SQL.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code(CodeInvalidVersion).With("version", version).Errorf("version must be non-negative")
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code(CodeMigrationForce).In("memento").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	var component string
	switch {
	case srcErr != nil && dbErr != nil:
		component = "both"
	case srcErr != nil:
		component = "source"
	case dbErr != nil:
		component = "database"
	default:
		return nil
	}
	return oops.Code(CodeMigrationClose).
		In("memento").
		With("component", component).
		Wrap(errors.Join(srcErr, dbErr))
}
