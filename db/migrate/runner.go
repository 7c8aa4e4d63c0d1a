// Package migrate applies the embedded member schema, either through
// golang-migrate (versioned, used by cmd/migrate and server startup) or by
// executing the DDL directly on an open pool (in-memory databases).
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Runner drives golang-migrate over the embedded migrations of one dialect.
type Runner struct {
	m *migrate.Migrate
}

// New builds a Runner for driverName/dsn (as returned by db.ParseDatabaseURL).
func New(driverName, dsn string, logger *slog.Logger) (*Runner, error) {
	databaseURL, err := db.MigrationURL(driverName, dsn)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, db.DialectFor(driverName).String())
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	m.Log = &migrateLogger{logger: logger}
	return &Runner{m: m}, nil
}

// Up applies all pending migrations. Being up to date is not an error.
func (r *Runner) Up() error {
	if err := r.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Down rolls back steps migrations.
func (r *Runner) Down(steps int) error {
	if steps < 1 {
		return fmt.Errorf("down: steps must be positive, got %d", steps)
	}
	if err := r.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version returns the applied version and whether the last run left it dirty.
// A database without migrations reports version 0.
func (r *Runner) Version() (uint, bool, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force sets the version without running migrations (clears a dirty state).
func (r *Runner) Force(version int) error { return r.m.Force(version) }

// Drop removes every table in the database.
func (r *Runner) Drop() error { return r.m.Drop() }

// Close releases the source and database handles.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}

// EnsureSchema executes every embedded up migration of q's dialect directly.
// The DDL uses IF NOT EXISTS, so running it against an existing schema is a
// no-op.
func EnsureSchema(ctx context.Context, q db.Querier) error {
	dir := q.Dialect().String()
	files, err := fs.Glob(migrations.FS, path.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("ensure schema: no migrations for dialect %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		ddl, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return fmt.Errorf("ensure schema: read %s: %w", f, err)
		}
		if _, err := q.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("ensure schema: apply %s: %w", f, err)
		}
	}
	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }
