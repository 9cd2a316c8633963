// internal/config/model.go
//
// Typed model for application tunables.
//
// Context
// -------
// These structs define the shape of the tree that loader.go builds from
// three layers:
//
//   • compiled-in defaults                  – see defaults(),
//   • optional `conf/app.yaml`              – operator overrides,
//   • `APP_`-prefixed environment overrides – highest precedence.
//
// The required database variables (DB_*) and the MAILGUN key are *not*
// part of this tree.  They are read by internal/env, which owns the
// fail-fast contract for them.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

// Middleware toggles the optional members of the middleware chain.  The
// error middleware is not listed; it is always installed.
type Middleware struct {
	Sessions        bool     `koanf:"sessions"`
	SessionKey      string   `koanf:"session_key"      validate:"required_if=Sessions true"`
	Files           bool     `koanf:"files"`
	FilesDir        string   `koanf:"files_dir"        validate:"required_if=Files true"`
	CORSOrigins     []string `koanf:"cors_origins"`
	SecurityHeaders bool     `koanf:"security_headers"`
	RequestInfo     bool     `koanf:"request_info"`
	GeoIPDB         string   `koanf:"geoip_db"`
	Metrics         bool     `koanf:"metrics"`
}

// Database tunes the connection pool.  Connection values come from DB_*.
type Database struct {
	MaxOpen         int           `koanf:"max_open"          validate:"gte=0"`
	MaxIdle         int           `koanf:"max_idle"          validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

// Log controls the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

// Mail holds the non-secret half of the mail provider settings.
type Mail struct {
	Domain string `koanf:"domain"`
	From   string `koanf:"from" validate:"omitempty,email"`
}

// Paths is resolved at runtime.
type Paths struct {
	Root string
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP       HTTP       `koanf:"http"`
	Middleware Middleware `koanf:"middleware"`
	Database   Database   `koanf:"database"`
	Log        Log        `koanf:"log"`
	Mail       Mail       `koanf:"mail"`
	Paths      Paths      `koanf:"-"`
}
