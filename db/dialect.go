package db

import (
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour spoken by the connected database.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
	DialectMySQL
)

// DialectFor maps a database/sql driver name onto its dialect. Unknown
// names fall back to SQLite, whose "?" placeholders are the common default.
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "postgres", "pgx":
		return DialectPostgres
	case "mysql":
		return DialectMySQL
	default:
		return DialectSQLite
	}
}

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// SupportsLastInsertID reports whether sql.Result.LastInsertId works.
// lib/pq and pgx do not implement it; use RETURNING there.
func (d Dialect) SupportsLastInsertID() bool {
	return d != DialectPostgres
}

// Rebind rewrites "?" placeholders into the dialect's native form. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
