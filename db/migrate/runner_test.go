package migrate_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/db/migrate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tableExists(t *testing.T, path string) bool {
	t.Helper()
	store, err := db.Open(db.Config{DSN: path, DriverName: db.DriverSQLite})
	require.NoError(t, err)
	defer store.Close()

	var n int
	err = store.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'members'`).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestRunner_UpVersionDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.db")

	r, err := migrate.New(db.DriverSQLite, path, quietLogger())
	require.NoError(t, err)
	defer r.Close()

	v, dirty, err := r.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, r.Up())
	require.NoError(t, r.Up(), "second up is a no-op")

	v, dirty, err = r.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
	assert.True(t, tableExists(t, path))

	require.NoError(t, r.Down(1))
	v, _, err = r.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, tableExists(t, path))
}

func TestRunner_Force(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.db")

	r, err := migrate.New(db.DriverSQLite, path, quietLogger())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Force(1))
	v, dirty, err := r.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestRunner_DownRejectsNonPositiveSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.db")

	r, err := migrate.New(db.DriverSQLite, path, quietLogger())
	require.NoError(t, err)
	defer r.Close()

	assert.Error(t, r.Down(0))
}

func TestNew_InMemoryUnsupported(t *testing.T) {
	_, err := migrate.New(db.DriverSQLite, ":memory:", quietLogger())
	assert.Error(t, err)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store, err := db.Open(db.Config{DSN: ":memory:", DriverName: db.DriverSQLite})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, migrate.EnsureSchema(ctx, store))
	_, err = store.Exec(ctx, `INSERT INTO members (name, email, level) VALUES (?, ?, ?)`, "Ann", "ann@x.com", "gold")
	require.NoError(t, err)

	require.NoError(t, migrate.EnsureSchema(ctx, store))

	var n int
	require.NoError(t, store.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n))
	assert.Equal(t, 1, n, "re-applying the schema must keep existing rows")
}

func TestEnsureSchema_UniqueEmail(t *testing.T) {
	store, err := db.Open(db.Config{DSN: ":memory:", DriverName: db.DriverSQLite})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, migrate.EnsureSchema(ctx, store))
	insert := `INSERT INTO members (name, email, level) VALUES (?, ?, ?)`
	_, err = store.Exec(ctx, insert, "Ann", "ann@x.com", "gold")
	require.NoError(t, err)
	_, err = store.Exec(ctx, insert, "Ann 2", "ann@x.com", "gold")
	assert.True(t, db.IsDuplicateKey(err), "got %v", err)
}
