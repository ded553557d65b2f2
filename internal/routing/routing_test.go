package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeSlug(t *testing.T) {
	cases := map[string]string{
		"Hot Water":                  "hot-water",
		"  Leak -- Detection! ":      "leak-detection",
		"Air Conditioning & Heating": "air-conditioning-heating",
		"☃":                          "page",
	}
	for in, want := range cases {
		assert.Equal(t, want, MakeSlug(in), in)
	}
	assert.True(t, ValidSlug("blocked-drains"))
	assert.False(t, ValidSlug("Blocked Drains"))
	assert.False(t, ValidSlug(""))
}

func TestBuildPath(t *testing.T) {
	assert.Equal(t, "/", BuildPath())
	assert.Equal(t, "/services/gas-fitting", BuildPath("services", "/gas-fitting/"))
	assert.Equal(t, "/about", BuildPath("", "about"))
}

func okHandler(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareStaticRedirect(t *testing.T) {
	c := NewRedirects(nil, 0, map[string]string{"/plumbing.html": "/services/leak-detection"})

	var got string
	req := httptest.NewRequest(http.MethodGet, "/plumbing.html?utm_source=flyer", nil)
	rr := httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/services/leak-detection?utm_source=flyer", rr.Header().Get("Location"))
	assert.Empty(t, got)
}

func TestMiddlewarePassesPostAndMisses(t *testing.T) {
	c := NewRedirects(nil, 0, map[string]string{"/book": "/booking"})

	var got string
	rr := httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/book", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/book", got)

	rr = httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/about", got)
}

func TestTableReloadAndPrecedence(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectQuery("SELECT from_path, to_path FROM route_redirect").
		WillReturnRows(sqlmock.NewRows([]string{"from_path", "to_path"}).
			AddRow("/old-drains", "/services/blocked-drains").
			AddRow("/contact.php", "/table-wins-not"))

	c := NewRedirects(db, time.Minute, map[string]string{"/contact.php": "/booking"})

	var got string
	rr := httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/old-drains", nil))
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/services/blocked-drains", rr.Header().Get("Location"))

	// Fresh table: no second query.
	rr = httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contact.php", nil))
	assert.Equal(t, "/booking", rr.Header().Get("Location"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReloadFailureKeepsServing(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectQuery("SELECT from_path").WillReturnError(errors.New("db down"))

	c := NewRedirects(db, time.Minute, nil)
	assert.Error(t, c.Load(context.Background()))

	var got string
	rr := httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReloadSurvivesCancelledRequest(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectQuery("SELECT from_path, to_path FROM route_redirect").
		WillReturnRows(sqlmock.NewRows([]string{"from_path", "to_path"}).
			AddRow("/old-drains", "/services/blocked-drains"))

	c := NewRedirects(db, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/old-drains", nil).WithContext(ctx)

	var got string
	rr := httptest.NewRecorder()
	Middleware(c)(okHandler(&got)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/services/blocked-drains", rr.Header().Get("Location"))
	require.NoError(t, mock.ExpectationsWereMet())
}
