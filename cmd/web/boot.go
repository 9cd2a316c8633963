package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/bootstrap"
	"github.com/yanizio/billing-api/internal/config"
	"github.com/yanizio/billing-api/internal/env"
	"github.com/yanizio/billing-api/internal/logger"
	"github.com/yanizio/billing-api/internal/registry"
	"github.com/yanizio/billing-api/internal/vault"
)

// app is what every subcommand gets after boot.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	reg *registry.Registry
}

func (a *app) close() {
	if err := a.reg.Databases().Close(); err != nil {
		a.log.Warnw("close databases", "err", err)
	}
	if err := a.reg.Middleware().Close(); err != nil {
		a.log.Warnw("close middleware", "err", err)
	}
	_ = a.log.Sync()
}

// boot runs the boot sequence.  The overlay is applied first so APP_*
// tunables and VAULT_ADDR may come from it.
func boot(ctx context.Context, cmd *cobra.Command) (*app, error) {
	early := logger.Bootstrap()

	overlay, _ := cmd.Flags().GetString("env-file")
	if err := bootstrap.LoadOverlay(overlay, early); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		early.Errorw("config load failed", "err", err)
		return nil, err
	}

	log, err := logger.New(cfg.Log, runningInTTY())
	if err != nil {
		early.Errorw("logger init failed", "err", err)
		return nil, err
	}

	var secrets env.Resolver
	if vault.Configured() {
		vc, err := vault.New(ctx, log.Named("vault"))
		if err != nil {
			log.Errorw("vault init failed", "err", err)
			return nil, err
		}
		secrets = vc
	}

	reg, err := bootstrap.Start(ctx, bootstrap.Options{
		SkipOverlay: true,
		Deps: bootstrap.Deps{
			Log:     log,
			Config:  cfg,
			Secrets: secrets,
		},
	})
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("startup: %w", err)
	}
	return &app{cfg: cfg, log: log, reg: reg}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		return config.LoadFrom(root)
	}
	return config.Load()
}

// runningInTTY reports whether stdout is an interactive terminal.
func runningInTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
