package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/service"
	"github.com/yanizio/billing-api/internal/session"
)

type locator map[service.Capability]any

func (l locator) Lookup(c service.Capability) (any, bool) {
	v, ok := l[c]
	return v, ok
}

func bootedProvider(t *testing.T) (*Provider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	set := database.NewSet(nil)
	require.NoError(t, set.Add(database.MySQL, database.Wrap(database.Config{}, sqlx.NewDb(db, "mysql"))))

	p := &Provider{}
	require.NoError(t, p.Boot(context.Background(), locator{service.Databases: set}))
	return p, mock
}

func whoami(t *testing.T) (http.Handler, *int64) {
	t.Helper()
	var seen int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}), &seen
}

func TestProvider_Requires(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, ProviderName, p.Name())
	assert.Equal(t, []string{database.ProviderName}, p.Requires())
}

func TestProvider_BootWithoutDatabase(t *testing.T) {
	p := &Provider{}
	assert.Error(t, p.Boot(context.Background(), locator{}))
	assert.Error(t, p.Boot(context.Background(), locator{service.Databases: database.NewSet(nil)}))
	assert.Nil(t, p.Store())
}

func TestRequire_ValidBearer(t *testing.T) {
	p, mock := bootedProvider(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM user_tokens")).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(7)))

	next, seen := whoami(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rr := httptest.NewRecorder()
	p.Require(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(7), *seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequire_UnknownBearer(t *testing.T) {
	p, mock := bootedProvider(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM user_tokens")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	next, _ := whoami(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	p.Require(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequire_Anonymous(t *testing.T) {
	p, _ := bootedProvider(t)
	next, _ := whoami(t)
	rr := httptest.NewRecorder()
	p.Require(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequire_SessionFallback(t *testing.T) {
	p, _ := bootedProvider(t)
	st, err := session.NewStore("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	login := st.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session.FromContext(r.Context()).Set(SessionUserKey, "12")
	}))
	rr := httptest.NewRecorder()
	login.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	next, seen := whoami(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	st.Middleware(p.Require(next)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(12), *seen)
}

func TestBearer(t *testing.T) {
	tok, ok := bearer("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearer("Basic abc")
	assert.False(t, ok)
	_, ok = bearer("Bearer ")
	assert.False(t, ok)
}
