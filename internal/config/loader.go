// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Compiled-in defaults.
  2. Optional `conf/app.yaml` under the resolved root.
  3. Environment variables prefixed `APP_`, where `__` maps to "."
     (e.g., `APP_HTTP__LISTEN_ADDR → http.listen_addr`).

The merged tree is unmarshalled, validated, stamped with the root path,
and cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG: root discovery, YAML read.
  • ERROR: YAML parse, env overlay, unmarshal, validation failures.
  • INFO:  final "config loaded" with key highlights.
  • Uses the global sugared logger (`zap.S()`) because the file logger is
    built *from* this config.
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix marks application overrides in the environment.
const EnvPrefix = "APP_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves APP_ROOT or climbs directories until conf/app.yaml is
// found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv("APP_ROOT"); r != "" {
		return r
	}
	wd, _ := os.Getwd()
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "conf", "app.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return wd
}

func defaults() map[string]any {
	return map[string]any{
		"http.listen_addr":            ":8080",
		"http.force_https":            false,
		"http.read_timeout":           "10s",
		"http.write_timeout":          "15s",
		"http.idle_timeout":           "60s",
		"middleware.files_dir":        "Public",
		"middleware.security_headers": true,
		"middleware.metrics":          true,
		"database.max_open":           15,
		"database.max_idle":           5,
		"database.conn_max_lifetime":  "30m",
		"log.level":                   "info",
	}
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load resolves the root and calls LoadFrom.
func Load() (*Config, error) { return LoadFrom(rootDir()) }

// LoadFrom reads defaults, YAML, and env overrides relative to root,
// validates, and caches the result.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	yamlPath := filepath.Join(root, "conf", "app.yaml")
	switch err := k.Load(file.Provider(yamlPath), yaml.Parser()); {
	case err == nil:
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	case errors.Is(err, fs.ErrNotExist):
		zap.S().Debugw("config yaml absent", "file", yamlPath)
	default:
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(root, "logs")
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// unmarshal decodes the merged tree.  Comma-separated strings split into
// slices so list keys can come from a single APP_ variable.
func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
}

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
