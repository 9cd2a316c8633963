package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/env"
	"github.com/yanizio/billing-api/internal/metrics"
	"github.com/yanizio/billing-api/internal/middleware"
	"github.com/yanizio/billing-api/internal/registry"
	"github.com/yanizio/billing-api/internal/schema"
	"github.com/yanizio/billing-api/internal/service"
)

func goodEnv() map[string]string {
	return map[string]string{
		env.DBHost:     "db.internal",
		env.DBPort:     "3306",
		env.DBUsername: "billing",
		env.DBPassword: "pw",
		env.DBName:     "billing",
	}
}

func configure(t *testing.T, vars map[string]string) (*registry.Builder, error) {
	t.Helper()
	b := registry.NewBuilder()
	return b, Configure(context.Background(), env.FromMap(vars), b, Deps{})
}

func TestConfigure_RegistersInOrder(t *testing.T) {
	b, err := configure(t, goodEnv())
	require.NoError(t, err)

	assert.Equal(t, []string{database.ProviderName, "auth"}, b.ProviderNames())
	assert.Equal(t, []service.Capability{
		service.Router,
		service.Middleware,
		service.Databases,
		service.Migrations,
		service.Content,
	}, b.Capabilities())
}

func TestConfigure_Registry(t *testing.T) {
	b, err := configure(t, goodEnv())
	require.NoError(t, err)
	reg, err := b.Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Databases().Close() })

	assert.Equal(t, middleware.NameErrors, reg.Middleware().Names()[0])

	set := reg.Databases()
	assert.Equal(t, []database.ID{database.MySQL}, set.IDs())
	db, ok := set.Get(database.MySQL)
	require.True(t, ok)
	assert.True(t, db.Logging())
	assert.Equal(t, database.UnverifiedTLS, db.Config.Transport)
	assert.Equal(t, database.DefaultCharacterSet, db.Config.CharacterSet)
	assert.Equal(t, 3306, db.Config.Port)

	assert.Equal(t, schema.Entities(), reg.Migrations().Names())
	for _, m := range reg.Migrations().All() {
		assert.Equal(t, database.MySQL, m.Database)
	}

	enc, ok := reg.Content().Encoder("application/json")
	assert.True(t, ok)
	assert.NotNil(t, enc)

	_, ok = reg.Mail()
	assert.False(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MailEnabled))
}

func TestConfigure_Mail(t *testing.T) {
	vars := goodEnv()
	vars[env.Mailgun] = "key-abc"
	b, err := configure(t, vars)
	require.NoError(t, err)
	reg, err := b.Build(context.Background())
	require.NoError(t, err)

	m, ok := reg.Mail()
	require.True(t, ok)
	assert.Equal(t, "key-abc", m.APIKey())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MailEnabled))
}

func TestConfigure_EmptyMailKeyIsAbsent(t *testing.T) {
	vars := goodEnv()
	vars[env.Mailgun] = ""
	b, err := configure(t, vars)
	require.NoError(t, err)
	assert.False(t, b.Has(service.Mail))
}

func TestConfigure_BadPortRegistersNothing(t *testing.T) {
	before := testutil.ToFloat64(metrics.ConfigureTotal.WithLabelValues("error"))

	vars := goodEnv()
	vars[env.DBPort] = "notanumber"
	b, err := configure(t, vars)

	require.Error(t, err)
	assert.ErrorIs(t, err, env.ErrMissingConfig)
	var pe *env.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, env.DBPort, pe.Name)

	assert.Empty(t, b.Capabilities())
	assert.Empty(t, b.ProviderNames())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ConfigureTotal.WithLabelValues("error")))
}

func TestConfigure_MissingRegistersNothing(t *testing.T) {
	vars := goodEnv()
	delete(vars, env.DBHost)
	delete(vars, env.DBName)
	b, err := configure(t, vars)

	var me *env.MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{env.DBHost, env.DBName}, me.Names)
	assert.Empty(t, b.Capabilities())
}

func TestConfigure_DuplicateRegistration(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.Register(service.Router, chi.NewRouter()))

	err := Configure(context.Background(), env.FromMap(goodEnv()), b, Deps{})
	assert.ErrorIs(t, err, registry.ErrDuplicate)
	assert.False(t, b.Has(service.Databases))
}

func TestConfigure_SessionsNeedKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Middleware.Sessions = true
	cfg.Middleware.SessionKey = "short"

	b := registry.NewBuilder()
	err := Configure(context.Background(), env.FromMap(goodEnv()), b, Deps{Config: cfg})
	assert.Error(t, err)
}

func TestConfigure_OptionalMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Middleware.Sessions = true
	cfg.Middleware.SessionKey = "0123456789abcdef0123456789abcdef"
	cfg.Middleware.Files = true
	cfg.Middleware.FilesDir = t.TempDir()
	cfg.Middleware.CORSOrigins = []string{"https://app.example.com"}

	b := registry.NewBuilder()
	require.NoError(t, Configure(context.Background(), env.FromMap(goodEnv()), b, Deps{Config: cfg}))
	reg, err := b.Build(context.Background())
	require.NoError(t, err)

	names := reg.Middleware().Names()
	assert.Equal(t, middleware.NameErrors, names[0])
	assert.Contains(t, names, middleware.NameSessions)
	assert.Contains(t, names, middleware.NameFiles)
	assert.Contains(t, names, middleware.NameCORS)
}

func TestHandler_UnknownRouteIsJSON(t *testing.T) {
	b, err := configure(t, goodEnv())
	require.NoError(t, err)
	reg, err := b.Build(context.Background())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	var body middleware.ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.True(t, body.Error)
}

/*──────────────────────────────── Start ───────────────────────────────────*/

// isolate sets every variable Start reads and then unsets them, so the
// overlay file is the only source.  t.Setenv restores the originals.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range append(append([]string{}, env.Required...), env.Mailgun) {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func writeOverlay(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestStart_FromOverlay(t *testing.T) {
	isolate(t)
	path := writeOverlay(t, "DB_HOST=db\nDB_PORT=3307\nDB_USERNAME=u\nDB_PASSWORD=p\nDB_NAME=billing\nMAILGUN=key-file\n")

	reg, err := Start(context.Background(), Options{Overlay: path})
	require.NoError(t, err)
	db, _ := reg.Databases().Get(database.MySQL)
	assert.Equal(t, 3307, db.Config.Port)
	m, ok := reg.Mail()
	require.True(t, ok)
	assert.Equal(t, "key-file", m.APIKey())

	again, err := Start(context.Background(), Options{Overlay: path})
	require.NoError(t, err)
	db2, _ := again.Databases().Get(database.MySQL)
	assert.Equal(t, db.Config, db2.Config)
}

func TestStart_ProcessWinsOverOverlay(t *testing.T) {
	isolate(t)
	path := writeOverlay(t, "DB_HOST=file\nDB_PORT=3306\nDB_USERNAME=u\nDB_PASSWORD=p\nDB_NAME=billing\n")
	t.Setenv(env.DBHost, "process")

	reg, err := Start(context.Background(), Options{Overlay: path})
	require.NoError(t, err)
	db, _ := reg.Databases().Get(database.MySQL)
	assert.Equal(t, "process", db.Config.Host)
}

func TestStart_MissingOverlayUsesProcess(t *testing.T) {
	isolate(t)
	for k, v := range goodEnv() {
		t.Setenv(k, v)
	}
	_, err := Start(context.Background(), Options{Overlay: filepath.Join(t.TempDir(), "absent.env")})
	assert.NoError(t, err)
}

func TestStart_MalformedOverlay(t *testing.T) {
	isolate(t)
	path := writeOverlay(t, "BROKEN='unterminated\n")
	_, err := Start(context.Background(), Options{Overlay: path})
	assert.ErrorIs(t, err, env.ErrOverlayParse)
}

func TestStart_MissingEverything(t *testing.T) {
	isolate(t)
	_, err := Start(context.Background(), Options{Overlay: filepath.Join(t.TempDir(), "absent.env")})

	var me *env.MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, env.Required, me.Names)
}

func TestStart_OverlayRemovedBetweenRuns(t *testing.T) {
	isolate(t)
	path := writeOverlay(t, "DB_HOST=file\nDB_PORT=3307\nDB_USERNAME=u\nDB_PASSWORD=p\nDB_NAME=billing\n")

	reg, err := Start(context.Background(), Options{Overlay: path})
	require.NoError(t, err)
	db, _ := reg.Databases().Get(database.MySQL)
	assert.Equal(t, "file", db.Config.Host)
	_ = reg.Databases().Close()

	require.NoError(t, os.Remove(path))
	for k, v := range goodEnv() {
		t.Setenv(k, v)
	}

	again, err := Start(context.Background(), Options{Overlay: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Databases().Close() })
	db, _ = again.Databases().Get(database.MySQL)
	assert.Equal(t, "db.internal", db.Config.Host)
	assert.Equal(t, 3306, db.Config.Port)
}

func TestStart_SkipOverlay(t *testing.T) {
	isolate(t)
	path := writeOverlay(t, "BROKEN='unterminated\n")
	for k, v := range goodEnv() {
		t.Setenv(k, v)
	}
	reg, err := Start(context.Background(), Options{Overlay: path, SkipOverlay: true})
	require.NoError(t, err)
	_ = reg.Databases().Close()
}

type failingProvider struct{}

func (failingProvider) Name() string                                { return "failing" }
func (failingProvider) Requires() []string                          { return nil }
func (failingProvider) Boot(context.Context, service.Locator) error { return errors.New("boom") }

func TestBuild_FailureReleasesResources(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	set := database.NewSet(nil)
	require.NoError(t, set.Add(database.MySQL, database.Wrap(database.Config{}, sqlx.NewDb(raw, "sqlmock"))))

	closed := 0
	chain := middleware.NewChain()
	chain.OnClose(func() error { closed++; return nil })

	b := registry.NewBuilder()
	require.NoError(t, b.Provide(failingProvider{}))
	require.NoError(t, b.Register(service.Databases, set))
	require.NoError(t, b.Register(service.Middleware, chain))

	reg, err := build(context.Background(), b, zap.NewNop().Sugar())
	assert.Nil(t, reg)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, closed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
