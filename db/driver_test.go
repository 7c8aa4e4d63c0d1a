package db_test

import (
	"testing"

	"github.com/Skryldev/member-directory/db"
)

func TestParseDatabaseURL(t *testing.T) {
	cases := []struct {
		name       string
		url        string
		override   string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{
			name:       "postgres url kept whole",
			url:        "postgres://u:p@localhost:5432/members?sslmode=disable",
			wantDriver: db.DriverPostgres,
			wantDSN:    "postgres://u:p@localhost:5432/members?sslmode=disable",
		},
		{
			name:       "postgresql scheme",
			url:        "postgresql://u:p@db/members",
			wantDriver: db.DriverPostgres,
			wantDSN:    "postgresql://u:p@db/members",
		},
		{
			name:       "pgx override on postgres url",
			url:        "postgres://u:p@db/members",
			override:   db.DriverPGX,
			wantDriver: db.DriverPGX,
			wantDSN:    "postgres://u:p@db/members",
		},
		{
			name:       "mysql scheme stripped",
			url:        "mysql://u:p@tcp(localhost:3306)/members?parseTime=true",
			wantDriver: db.DriverMySQL,
			wantDSN:    "u:p@tcp(localhost:3306)/members?parseTime=true",
		},
		{
			name:       "sqlite3 scheme stripped",
			url:        "sqlite3://members.db",
			wantDriver: db.DriverSQLite,
			wantDSN:    "members.db",
		},
		{
			name:       "sqlite alias",
			url:        "sqlite:///var/lib/members.db",
			wantDriver: db.DriverSQLite,
			wantDSN:    "/var/lib/members.db",
		},
		{
			name:       "bare in-memory",
			url:        ":memory:",
			wantDriver: db.DriverSQLite,
			wantDSN:    ":memory:",
		},
		{
			name:       "keyword dsn with explicit driver",
			url:        "host=localhost dbname=members sslmode=disable",
			override:   db.DriverPostgres,
			wantDriver: db.DriverPostgres,
			wantDSN:    "host=localhost dbname=members sslmode=disable",
		},
		{name: "empty", url: "  ", wantErr: true},
		{name: "unknown scheme", url: "oracle://x", wantErr: true},
		{name: "override conflicts with scheme", url: "mysql://u@tcp(h)/d", override: db.DriverPostgres, wantErr: true},
		{name: "pgx needs postgres url", url: "sqlite3://m.db", override: db.DriverPGX, wantErr: true},
		{name: "unsupported override", url: "x", override: "mssql", wantErr: true},
		{name: "scheme without details", url: "sqlite3://", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			driver, dsn, err := db.ParseDatabaseURL(tc.url, tc.override)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got driver=%q dsn=%q", driver, dsn)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if driver != tc.wantDriver || dsn != tc.wantDSN {
				t.Fatalf("got (%q, %q), want (%q, %q)", driver, dsn, tc.wantDriver, tc.wantDSN)
			}
		})
	}
}

func TestMigrationURL(t *testing.T) {
	cases := []struct {
		driver  string
		dsn     string
		want    string
		wantErr bool
	}{
		{db.DriverPostgres, "postgres://u:p@db/members", "postgres://u:p@db/members", false},
		{db.DriverPGX, "postgres://u:p@db/members", "postgres://u:p@db/members", false},
		{db.DriverPostgres, "host=db dbname=members", "", true},
		{db.DriverMySQL, "u:p@tcp(db:3306)/members", "mysql://u:p@tcp(db:3306)/members", false},
		{db.DriverSQLite, "members.db", "sqlite3://members.db", false},
		{db.DriverSQLite, ":memory:", "", true},
		{db.DriverSQLite, "file::memory:?cache=shared", "", true},
		{"mssql", "x", "", true},
	}
	for _, tc := range cases {
		got, err := db.MigrationURL(tc.driver, tc.dsn)
		if tc.wantErr {
			if err == nil {
				t.Errorf("MigrationURL(%q, %q): expected error, got %q", tc.driver, tc.dsn, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("MigrationURL(%q, %q) = %q, %v; want %q", tc.driver, tc.dsn, got, err, tc.want)
		}
	}
}
