package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/db/migrate"
	"github.com/Skryldev/member-directory/models"
	"github.com/Skryldev/member-directory/service"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) *service.MemberService {
	t.Helper()
	store, err := db.Open(db.Config{DSN: ":memory:", DriverName: db.DriverSQLite})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, migrate.EnsureSchema(context.Background(), store))
	return service.NewMemberService(store, quietLogger())
}

func payload(name, email, level any) models.MemberPayload {
	return models.MemberPayload{Name: name, Email: email, Level: level}
}

func TestMemberService_CreateAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)
	assert.Equal(t, models.MemberView{ID: 1, Name: "Ann", Email: "ann@x.com", Level: "gold"}, created.View())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestMemberService_CreateDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, payload("Another Ann", "ann@x.com", "silver"))
	assert.ErrorIs(t, err, service.ErrEmailExists)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemberService_CreateValidationOrder(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("", 5, "x"))
	assert.ErrorIs(t, err, service.ErrMissingInformation)

	_, err = svc.Create(ctx, payload("Ann", 5.0, "gold"))
	assert.ErrorIs(t, err, service.ErrInvalidInputType)

	_, err = svc.Create(ctx, payload("Ann", "not-an-email", "gold"))
	assert.ErrorIs(t, err, service.ErrInvalidEmail)

	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, service.ReasonFormat, ve.Reason)
}

func TestMemberService_GetInvalidID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, id := range []int64{-1, 0, 1, 2} {
		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, service.ErrInvalidMemberID, "id %d", id)
	}
}

func TestMemberService_ListEmpty(t *testing.T) {
	svc := newService(t)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, service.ErrNoMembers)

	var nf *service.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Member not found.", nf.Message)
}

func TestMemberService_ListOrderedAfterUpdates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := svc.Create(ctx, payload("M", e, "gold"))
		require.NoError(t, err)
	}
	_, err := svc.Update(ctx, 2, payload("Zed", "zed@x.com", "silver"))
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, payload("Amy", "amy@x.com", "bronze"))
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

func TestMemberService_Update(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, payload("Ann B", "annb@x.com", "platinum"))
	require.NoError(t, err)
	assert.Equal(t, models.MemberView{ID: created.ID, Name: "Ann B", Email: "annb@x.com", Level: "platinum"}, updated.View())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemberService_UpdateKeepsOwnEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, payload("Ann", "ann@x.com", "platinum"))
	require.NoError(t, err)
	assert.Equal(t, "platinum", updated.Level)
}

func TestMemberService_UpdateToTakenEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)
	bob, err := svc.Create(ctx, payload("Bob", "bob@x.com", "gold"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob.ID, payload("Bob", "ann@x.com", "gold"))
	assert.ErrorIs(t, err, service.ErrEmailExists)

	got, err := svc.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", got.Email)
}

func TestMemberService_UpdateChecksIDBeforePayload(t *testing.T) {
	svc := newService(t)

	_, err := svc.Update(context.Background(), 99, payload("", "", ""))
	assert.ErrorIs(t, err, service.ErrInvalidMemberID)
}

func TestMemberService_UpdateInvalidPayload(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, payload("Ann", "ann-at-x", "gold"))
	assert.ErrorIs(t, err, service.ErrInvalidEmail)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
}

func TestMemberService_Delete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, payload("Ann", "ann@x.com", "gold"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrInvalidMemberID)
	_, err = svc.Update(ctx, created.ID, payload("Ann", "ann@x.com", "gold"))
	assert.ErrorIs(t, err, service.ErrInvalidMemberID)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrInvalidMemberID)
}

func TestMemberService_StoreFailureIsNotTyped(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	boom := errors.New("connection reset by peer")
	mock.ExpectQuery(`SELECT id, name, email, level FROM members WHERE id = \?`).
		WithArgs(int64(1)).
		WillReturnError(boom)

	svc := service.NewMemberService(db.FromSQL(sqldb, db.Config{DriverName: db.DriverSQLite}), quietLogger())
	_, err = svc.Get(context.Background(), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var ve *service.ValidationError
	var nf *service.NotFoundError
	assert.False(t, errors.As(err, &ve))
	assert.False(t, errors.As(err, &nf))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberService_CreateRaceMapsToEmailExists(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	// The pre-check sees no owner, then the UNIQUE constraint fires.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM members WHERE email = \$1`).
		WithArgs("ann@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "level"}))
	mock.ExpectQuery(`INSERT INTO members`).
		WithArgs("Ann", "ann@x.com", "gold").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "members_email_key" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	svc := service.NewMemberService(db.FromSQL(sqldb, db.Config{DriverName: db.DriverPostgres}), quietLogger())
	_, err = svc.Create(context.Background(), payload("Ann", "ann@x.com", "gold"))

	assert.ErrorIs(t, err, service.ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
