package db_test

import (
	"testing"

	"github.com/Skryldev/member-directory/db"
)

func TestDialectFor(t *testing.T) {
	cases := []struct {
		driver string
		want   db.Dialect
		name   string
	}{
		{db.DriverPostgres, db.DialectPostgres, "postgres"},
		{db.DriverPGX, db.DialectPostgres, "postgres"},
		{db.DriverMySQL, db.DialectMySQL, "mysql"},
		{db.DriverSQLite, db.DialectSQLite, "sqlite3"},
		{"", db.DialectSQLite, "sqlite3"},
	}
	for _, tc := range cases {
		got := db.DialectFor(tc.driver)
		if got != tc.want {
			t.Errorf("DialectFor(%q) = %v, want %v", tc.driver, got, tc.want)
		}
		if got.String() != tc.name {
			t.Errorf("DialectFor(%q).String() = %q, want %q", tc.driver, got.String(), tc.name)
		}
	}
}

func TestSupportsLastInsertID(t *testing.T) {
	if db.DialectPostgres.SupportsLastInsertID() {
		t.Error("postgres must use RETURNING")
	}
	if !db.DialectMySQL.SupportsLastInsertID() || !db.DialectSQLite.SupportsLastInsertID() {
		t.Error("mysql and sqlite report LastInsertId")
	}
}

func TestRebind(t *testing.T) {
	cases := []struct {
		name    string
		dialect db.Dialect
		in      string
		want    string
	}{
		{
			name:    "postgres numbers placeholders",
			dialect: db.DialectPostgres,
			in:      "UPDATE members SET name = ?, email = ?, level = ? WHERE id = ?",
			want:    "UPDATE members SET name = $1, email = $2, level = $3 WHERE id = $4",
		},
		{
			name:    "postgres skips quoted literals",
			dialect: db.DialectPostgres,
			in:      "SELECT id FROM members WHERE name = 'who?' AND email = ?",
			want:    "SELECT id FROM members WHERE name = 'who?' AND email = $1",
		},
		{
			name:    "postgres without placeholders",
			dialect: db.DialectPostgres,
			in:      "SELECT COUNT(*) FROM members",
			want:    "SELECT COUNT(*) FROM members",
		},
		{
			name:    "mysql unchanged",
			dialect: db.DialectMySQL,
			in:      "DELETE FROM members WHERE id = ?",
			want:    "DELETE FROM members WHERE id = ?",
		},
		{
			name:    "sqlite unchanged",
			dialect: db.DialectSQLite,
			in:      "SELECT * FROM members WHERE email = ?",
			want:    "SELECT * FROM members WHERE email = ?",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.dialect.Rebind(tc.in); got != tc.want {
				t.Fatalf("Rebind:\n got  %q\n want %q", got, tc.want)
			}
		})
	}
}
