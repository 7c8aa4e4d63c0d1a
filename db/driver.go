package db

import (
	"fmt"
	"strings"

	// database/sql drivers; each registers itself in init().
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverPGX      = "pgx"      // github.com/jackc/pgx/v5/stdlib
	DriverMySQL    = "mysql"    // github.com/go-sql-driver/mysql
	DriverSQLite   = "sqlite3"  // github.com/mattn/go-sqlite3
)

// ParseDatabaseURL turns a DATABASE_URL into a driver name and the DSN that
// driver expects. The driver is inferred from the URL scheme unless override
// is set:
//
//	postgres://u:p@host/db       -> postgres, unchanged
//	mysql://u:p@tcp(host)/db     -> mysql,    u:p@tcp(host)/db
//	sqlite3://members.db         -> sqlite3,  members.db
//	:memory: / file:x.db         -> sqlite3,  unchanged
func ParseDatabaseURL(rawURL, override string) (driverName, dsn string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", fmt.Errorf("memberdir/db: DATABASE_URL must not be empty")
	}

	switch {
	case hasScheme(rawURL, "postgres", "postgresql"):
		driverName, dsn = DriverPostgres, rawURL
	case hasScheme(rawURL, "mysql"):
		driverName, dsn = DriverMySQL, stripScheme(rawURL)
	case hasScheme(rawURL, "sqlite3", "sqlite"):
		driverName, dsn = DriverSQLite, stripScheme(rawURL)
	case rawURL == ":memory:" || strings.HasPrefix(rawURL, "file:"):
		driverName, dsn = DriverSQLite, rawURL
	default:
		if override == "" {
			return "", "", fmt.Errorf("memberdir/db: cannot infer driver from DATABASE_URL; set DATABASE_DRIVER")
		}
		dsn = rawURL
	}

	switch override {
	case "":
	case DriverPGX:
		if driverName != "" && driverName != DriverPostgres {
			return "", "", fmt.Errorf("memberdir/db: driver %q needs a postgres:// URL", override)
		}
		driverName = DriverPGX
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if driverName != "" && driverName != override {
			return "", "", fmt.Errorf("memberdir/db: DATABASE_DRIVER %q does not match URL scheme (%s)", override, driverName)
		}
		driverName = override
	default:
		return "", "", fmt.Errorf("memberdir/db: unsupported driver %q", override)
	}

	if dsn == "" {
		return "", "", fmt.Errorf("memberdir/db: DATABASE_URL has no connection details")
	}
	return driverName, dsn, nil
}

// MigrationURL builds the golang-migrate database URL for a driver DSN.
func MigrationURL(driverName, dsn string) (string, error) {
	switch driverName {
	case DriverPostgres, DriverPGX:
		if !hasScheme(dsn, "postgres", "postgresql") {
			return "", fmt.Errorf("memberdir/db: migrations need a postgres:// URL, got keyword DSN")
		}
		return dsn, nil
	case DriverMySQL:
		return "mysql://" + dsn, nil
	case DriverSQLite:
		if strings.Contains(dsn, ":memory:") {
			return "", fmt.Errorf("memberdir/db: cannot run versioned migrations against an in-memory database")
		}
		return "sqlite3://" + dsn, nil
	default:
		return "", fmt.Errorf("memberdir/db: unsupported driver %q", driverName)
	}
}

func hasScheme(u string, schemes ...string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(strings.ToLower(u), s+"://") {
			return true
		}
	}
	return false
}

func stripScheme(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[i+3:]
	}
	return u
}
