// internal/server/timeouts.go
//
// HTTP server helper with configurable timeouts.
//
//   • ReadTimeout   – abort slow-loris headers (default 10 s)
//   • WriteTimeout  – cap total response time (default 15 s)
//   • IdleTimeout   – close keep-alives on idle clients (default 60 s)
//
// Defaults live in internal/config; zero values fall back to the same
// numbers so a hand-built config.HTTP still gets a hardened server.

package server

import (
	"net/http"
	"time"

	"github.com/yanizio/billing-api/internal/config"
)

// New constructs an *http.Server for cfg.ListenAddr.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       or(cfg.ReadTimeout, 10*time.Second),
		ReadHeaderTimeout: or(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout:      or(cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       or(cfg.IdleTimeout, 60*time.Second),
	}
}

func or(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
