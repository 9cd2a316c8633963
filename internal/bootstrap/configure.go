// internal/bootstrap/configure.go
//
// Startup configurator.
//
// Context
// -------
// Configure turns an environment snapshot into registry bindings.  All
// environment checks run first, so a bad DB_* value leaves the builder
// untouched.  Registration then happens in a fixed order:
//
//  1. persistence provider, then auth provider
//  2. router, populated from the route table
//  3. middleware chain (errors outermost, optional members from config)
//  4. database set holding `mysql`, with query logging on
//  5. entity migrations against `mysql`
//  6. JSON content configuration
//  7. mail client, only when MAILGUN is non-empty
//
// A registration failure is returned as-is.  Bindings made before it stay
// on the builder; the caller discards the builder.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/auth"
	"github.com/yanizio/billing-api/internal/codec"
	"github.com/yanizio/billing-api/internal/config"
	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/env"
	"github.com/yanizio/billing-api/internal/mail"
	"github.com/yanizio/billing-api/internal/metrics"
	"github.com/yanizio/billing-api/internal/middleware"
	"github.com/yanizio/billing-api/internal/migrate"
	"github.com/yanizio/billing-api/internal/registry"
	"github.com/yanizio/billing-api/internal/requestinfo"
	"github.com/yanizio/billing-api/internal/routes"
	"github.com/yanizio/billing-api/internal/schema"
	"github.com/yanizio/billing-api/internal/service"
	"github.com/yanizio/billing-api/internal/session"
)

// Deps are the collaborators Configure does not build itself.  Zero values
// are usable: routes.Default, a no-op logger, compiled-in config defaults,
// and no secret resolver.
type Deps struct {
	Routes  routes.Table
	Log     *zap.SugaredLogger
	Config  *config.Config
	Secrets env.Resolver
}

func (d Deps) withDefaults() Deps {
	if d.Routes == nil {
		d.Routes = routes.Default
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.Config == nil {
		d.Config = DefaultConfig()
	}
	return d
}

// DefaultConfig is the tunables tree used when no config is supplied.
func DefaultConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTP{ListenAddr: ":8080"},
		Middleware: config.Middleware{
			FilesDir:        "Public",
			SecurityHeaders: true,
			Metrics:         true,
		},
		Log: config.Log{Level: "info"},
	}
}

// validated is everything read from the environment before any write.
type validated struct {
	db      database.Config
	mailKey string
	hasMail bool
}

// Configure validates s and registers services on b.
func Configure(ctx context.Context, s *env.Settings, b *registry.Builder, deps Deps) (err error) {
	deps = deps.withDefaults()
	log := deps.Log
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			log.Errorw("configure failed", "err", err)
		}
		metrics.ConfigureTotal.WithLabelValues(result).Inc()
	}()

	v, err := validate(ctx, s, deps.Secrets)
	if err != nil {
		return err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
		}
	}()

	db, err := database.Open(v.db, poolOptions(deps.Config.Database))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	closers = append(closers, db.Close)

	var mailer *mail.Client
	if v.hasMail {
		mailer, err = mail.New(mail.Config{
			APIKey: v.mailKey,
			Domain: deps.Config.Mail.Domain,
			From:   deps.Config.Mail.From,
		})
		if err != nil {
			return err
		}
	}

	content := codec.Default()
	authp := &auth.Provider{Log: log}

	// 1. Providers.
	if err := b.Provide(&database.Provider{Log: log}); err != nil {
		return err
	}
	if err := b.Provide(authp); err != nil {
		return err
	}

	// 2. Router.
	mux := chi.NewRouter()
	deps.Routes(mux, routes.Env{DB: db, Content: content, Auth: authp, Mail: mailer, Log: log})
	if err := register(b, log, service.Router, mux); err != nil {
		return err
	}

	// 3. Middleware.
	chain, err := buildChain(deps.Config, content, log, mux)
	if err != nil {
		return err
	}
	closers = append(closers, chain.Close)
	if err := register(b, log, service.Middleware, chain); err != nil {
		return err
	}

	// 4. Databases.
	set := database.NewSet(log)
	set.EnableLogging(database.MySQL)
	if err := set.Add(database.MySQL, db); err != nil {
		return err
	}
	if err := register(b, log, service.Databases, set); err != nil {
		return err
	}

	// 5. Migrations.
	migs := migrate.NewRegistry()
	for _, m := range schema.Migrations(database.MySQL) {
		if err := migs.Add(m); err != nil {
			return err
		}
	}
	if err := register(b, log, service.Migrations, migs); err != nil {
		return err
	}

	// 6. Content.
	if err := register(b, log, service.Content, content); err != nil {
		return err
	}

	// 7. Mail.
	if mailer != nil {
		if err := register(b, log, service.Mail, mailer); err != nil {
			return err
		}
		metrics.MailEnabled.Set(1)
	} else {
		metrics.MailEnabled.Set(0)
		log.Debugw("mail disabled", "reason", env.Mailgun+" not set")
	}

	metrics.RegisteredMigrations.Set(float64(migs.Len()))
	log.Infow("configure complete",
		"database", v.db.String(),
		"middleware", chain.Names(),
		"migrations", migs.Len(),
		"mail", mailer != nil,
	)
	return nil
}

func validate(ctx context.Context, s *env.Settings, r env.Resolver) (validated, error) {
	if s == nil {
		return validated{}, errors.New("configure: nil environment settings")
	}
	db, err := env.Database(ctx, s, r)
	if err != nil {
		return validated{}, err
	}
	key, ok, err := env.MailKey(ctx, s, r)
	if err != nil {
		return validated{}, err
	}
	return validated{db: db, mailKey: key, hasMail: ok}, nil
}

func register(b *registry.Builder, log *zap.SugaredLogger, c service.Capability, v any) error {
	if err := b.Register(c, v); err != nil {
		return err
	}
	log.Debugw("capability registered", "capability", string(c))
	return nil
}

func poolOptions(c config.Database) database.Options {
	o := database.DefaultOptions()
	if c.MaxOpen > 0 {
		o.MaxOpenConns = c.MaxOpen
	}
	if c.MaxIdle > 0 {
		o.MaxIdleConns = c.MaxIdle
	}
	if c.ConnMaxLifetime > 0 {
		o.ConnMaxLifetime = c.ConnMaxLifetime
	}
	return o
}

// buildChain starts from an empty chain and appends members in wrapping
// order.  A GeoIP reader opened for request info is released by
// chain.Close.
func buildChain(cfg *config.Config, content *codec.Config, log *zap.SugaredLogger, mux chi.Routes) (*middleware.Chain, error) {
	mw := cfg.Middleware
	chain := middleware.NewChain()

	type entry struct {
		name string
		fn   middleware.Func
	}
	entries := []entry{
		{middleware.NameErrors, middleware.Errors(content, log)},
		{middleware.NameRequestID, middleware.RequestID},
		{middleware.NameAccessLog, middleware.AccessLog(log, mux)},
	}
	if mw.Metrics {
		entries = append(entries, entry{middleware.NameMetrics, middleware.Metrics(mux)})
	}
	if cfg.HTTP.ForceHTTPS {
		entries = append(entries, entry{middleware.NameForceHTTPS, middleware.ForceHTTPS})
	}
	if mw.SecurityHeaders {
		entries = append(entries, entry{middleware.NameSecurity, middleware.Security(mw.Files)})
	}
	if len(mw.CORSOrigins) > 0 {
		entries = append(entries, entry{middleware.NameCORS, middleware.CORS(mw.CORSOrigins)})
	}

	var geo *requestinfo.GeoDB
	if mw.RequestInfo {
		if mw.GeoIPDB != "" {
			g, err := requestinfo.OpenGeo(mw.GeoIPDB)
			if err != nil {
				return nil, fmt.Errorf("open geoip database: %w", err)
			}
			geo = g
			chain.OnClose(geo.Close)
		}
		entries = append(entries, entry{middleware.NameRequestInfo, requestinfo.Enrich(geo)})
	}
	if mw.Sessions {
		st, err := session.NewStore(mw.SessionKey)
		if err != nil {
			_ = chain.Close()
			return nil, err
		}
		entries = append(entries, entry{middleware.NameSessions, st.Middleware})
	}
	if mw.Files {
		entries = append(entries, entry{middleware.NameFiles, middleware.Files(mw.FilesDir)})
	}

	for _, e := range entries {
		if err := chain.Use(e.name, e.fn); err != nil {
			_ = chain.Close()
			return nil, err
		}
	}
	if err := chain.Validate(); err != nil {
		_ = chain.Close()
		return nil, err
	}
	return chain, nil
}
