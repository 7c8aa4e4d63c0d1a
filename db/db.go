// Package db is the SQL-first store toolkit behind the member directory.
// It wraps *sql.DB with context-aware helpers, statement hooks, dialect-aware
// placeholder rebinding, unified error mapping and transaction management.
// All SQL stays explicit in the repositories.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const pingTimeout = 5 * time.Second

// Config holds all options for opening and managing the connection pool.
type Config struct {
	// DSN is the driver-specific data-source name (not the DATABASE_URL form;
	// see ParseDatabaseURL).
	DSN string

	// DriverName is "postgres", "pgx", "mysql" or "sqlite3".
	DriverName string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// DefaultTimeout is applied to statements whose context has no deadline.
	// Zero means no default timeout.
	DefaultTimeout time.Duration

	// Hooks run around every statement. Nil entries are skipped.
	Hooks []Hook
}

// DB is a concurrency-safe handle on the member store. Exec, Query, QueryRow
// and Dialect come from the embedded executor.
type DB struct {
	executor
	sqldb *sql.DB
	cfg   Config
}

// Open opens the database described by cfg and verifies connectivity.
// An unreachable server is reported as ErrConnectionFailed.
func Open(cfg Config) (*DB, error) {
	switch {
	case cfg.DSN == "":
		return nil, errors.New("memberdir/db: DSN must not be empty")
	case cfg.DriverName == "":
		return nil, errors.New("memberdir/db: DriverName must not be empty")
	}

	sqldb, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("memberdir/db: open %s: %w", cfg.DriverName, err)
	}
	d := FromSQL(sqldb, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		mapped := d.mapErr(err)
		var dbe *DBError
		if !errors.As(mapped, &dbe) {
			mapped = &DBError{Sentinel: ErrConnectionFailed, Cause: err}
		}
		return nil, fmt.Errorf("memberdir/db: ping: %w", mapped)
	}
	return d, nil
}

// FromSQL wraps an already opened *sql.DB. Pool settings from cfg are applied;
// no connectivity check is made. Tests use it with go-sqlmock.
func FromSQL(sqldb *sql.DB, cfg Config) *DB {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	// Every connection to ":memory:" is a separate database.
	if cfg.DriverName == DriverSQLite && strings.Contains(cfg.DSN, ":memory:") {
		sqldb.SetMaxOpenConns(1)
	}

	return &DB{
		executor: executor{
			conn:    sqldb,
			dialect: DialectFor(cfg.DriverName),
			hooks:   newHookChain(cfg.Hooks),
			errMap:  DefaultErrorMapper(),
			timeout: cfg.DefaultTimeout,
		},
		sqldb: sqldb,
		cfg:   cfg,
	}
}

// Raw returns the underlying *sql.DB.
func (d *DB) Raw() *sql.DB { return d.sqldb }

// DriverName returns the database/sql driver name the pool was opened with.
func (d *DB) DriverName() string { return d.cfg.DriverName }

// SetErrorMapper replaces the default error mapper. Call it before the DB is
// shared between goroutines.
func (d *DB) SetErrorMapper(m ErrorMapper) { d.errMap = m }

// Close closes all pooled connections.
func (d *DB) Close() error { return d.sqldb.Close() }

// Ping verifies that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.mapErr(d.sqldb.PingContext(ctx))
}

// ─────────────────────────────────────────────────────────────────────────────
// WithRetry
// ─────────────────────────────────────────────────────────────────────────────

// RetryConfig controls retry behaviour for transient errors.
type RetryConfig struct {
	// MaxAttempts counts the first call; values below 1 mean a single call.
	MaxAttempts int
	Delay       time.Duration
	// RetryOn decides whether err is worth another attempt. Defaults to
	// IsTransient.
	RetryOn func(error) bool
}

// IsTransient reports whether err is a deadlock, a timeout or a lost
// connection.
func IsTransient(err error) bool {
	return IsDeadlock(err) || IsTimeout(err) || IsConnectionFailed(err)
}

// WithRetry calls fn until it succeeds, returns an error RetryOn rejects, or
// runs out of attempts. Waiting between attempts stops early when ctx is done.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	retryOn := cfg.RetryOn
	if retryOn == nil {
		retryOn = IsTransient
	}
	attempts := max(cfg.MaxAttempts, 1)

	err := fn()
	for n := 1; err != nil && n < attempts; n++ {
		if !retryOn(err) {
			return err
		}
		t := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		err = fn()
	}
	switch {
	case err == nil:
		return nil
	case !retryOn(err) || attempts == 1:
		return err
	default:
		return fmt.Errorf("memberdir/db: all %d attempts failed, last error: %w", attempts, err)
	}
}
