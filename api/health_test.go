package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/member-directory/api"
	"github.com/Skryldev/member-directory/db"
)

func TestHealth_Healthy(t *testing.T) {
	s := newTestServer(t, false)
	s.create(t, "Ann", "ann@x.com", "gold")

	rec := s.doAs(t, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"up"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "members", "public health body must not expose member data")
}

func TestHealth_PingFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqldb.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	h := api.NewHealthHandler(db.FromSQL(sqldb, db.Config{DriverName: db.DriverPostgres}), quietLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"down"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_CountFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqldb.Close()
	mock.ExpectPing()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM members`).WillReturnError(errors.New("relation \"members\" does not exist"))

	h := api.NewHealthHandler(db.FromSQL(sqldb, db.Config{DriverName: db.DriverPostgres}), quietLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
