package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/env"
	"github.com/yanizio/billing-api/internal/middleware"
	"github.com/yanizio/billing-api/internal/registry"
	"github.com/yanizio/billing-api/internal/service"
)

// Options control Start.  An empty Overlay means env.DefaultOverlay.
// SkipOverlay is set by callers that already loaded the overlay themselves.
type Options struct {
	Overlay     string
	SkipOverlay bool
	Deps        Deps
}

// Start loads the overlay, snapshots the process environment, configures a
// fresh builder, and builds the registry.
func Start(ctx context.Context, opts Options) (*registry.Registry, error) {
	log := opts.Deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if !opts.SkipOverlay {
		if err := LoadOverlay(opts.Overlay, log); err != nil {
			return nil, err
		}
	}

	b := registry.NewBuilder()
	if err := Configure(ctx, env.FromProcess(), b, opts.Deps); err != nil {
		return nil, err
	}
	return build(ctx, b, log)
}

// LoadOverlay applies the overlay at path to the process environment and
// logs the outcome.  An empty path means env.DefaultOverlay.
func LoadOverlay(path string, log *zap.SugaredLogger) error {
	if path == "" {
		path = env.DefaultOverlay
	}
	outcome, err := env.LoadOverlay(path)
	if err != nil {
		log.Errorw("env overlay unreadable", "file", path, "err", err)
		return err
	}
	if outcome == env.Loaded {
		log.Infow("env overlay loaded", "file", path)
	} else {
		log.Debugw("env overlay absent", "file", path)
	}
	return nil
}

// build boots b.  On failure the pools and the chain registered by
// Configure are closed before the error is returned.
func build(ctx context.Context, b *registry.Builder, log *zap.SugaredLogger) (*registry.Registry, error) {
	reg, err := b.Build(ctx)
	if err == nil {
		return reg, nil
	}
	if set, ok := database.Databases(b); ok {
		if cerr := set.Close(); cerr != nil {
			log.Warnw("close databases", "err", cerr)
		}
	}
	if v, ok := b.Lookup(service.Middleware); ok {
		if chain, ok := v.(*middleware.Chain); ok {
			if cerr := chain.Close(); cerr != nil {
				log.Warnw("close middleware", "err", cerr)
			}
		}
	}
	return nil, err
}
