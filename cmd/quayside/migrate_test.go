// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/memento/postgres"
	"github.com/quayside/quayside/pkg/errutil"
)

type fakeMigrator struct {
	calls   []string
	version uint
	dirty   bool
	forced  int
	closed  bool
	err     error
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }
func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, f.dirty, f.err
}
func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	f.calls = append(f.calls, "force")
	return f.err
}
func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func withFakeMigrator(t *testing.T, fake *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := newMigrator
	newMigrator = func(url string) (migrator, error) {
		gotURL = url
		return fake, nil
	}
	t.Cleanup(func() { newMigrator = orig })
	return &gotURL
}

func runMigrateCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"migrate"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate_Subcommands(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		fake   *fakeMigrator
		want   string
		called string
	}{
		{"up", []string{"up"}, &fakeMigrator{}, "Migrations completed successfully\n", "up"},
		{"down", []string{"down"}, &fakeMigrator{}, "Rolled back all migrations\n", "down"},
		{"version", []string{"version"}, &fakeMigrator{version: 2}, "Version: 2\n", "version"},
		{"dirty version", []string{"version"}, &fakeMigrator{version: 1, dirty: true}, "Version: 1 (dirty)\n", "version"},
		{"force", []string{"force", "1"}, &fakeMigrator{}, "Forced version 1\n", "force"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("DATABASE_URL", "postgres://quayside@localhost/quayside")
			gotURL := withFakeMigrator(t, tt.fake)

			out, err := runMigrateCmd(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, []string{tt.called}, tt.fake.calls)
			assert.True(t, tt.fake.closed)
			assert.Equal(t, "postgres://quayside@localhost/quayside", *gotURL)
		})
	}
}

func TestMigrate_Errors(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{}
	withFakeMigrator(t, fake)

	_, err := runMigrateCmd(t, "up")
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
	assert.Empty(t, fake.calls, "no DSN, no migrator")

	t.Setenv("DATABASE_URL", "postgres://localhost/quayside")
	_, err = runMigrateCmd(t, "force", "x")
	errutil.AssertErrorCode(t, err, postgres.CodeInvalidVersion)

	fake.err = oops.Code("MIGRATION_UP_FAILED").Errorf("boom")
	_, err = runMigrateCmd(t, "up")
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
}
