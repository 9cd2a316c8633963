package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/env"
)

func unset(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func setFlags(t *testing.T, envFile, root string) {
	t.Helper()
	require.NoError(t, rootCmd.ParseFlags([]string{"--env-file", envFile, "--root", root}))
	t.Cleanup(func() {
		_ = rootCmd.Flags().Set("env-file", ".env")
		_ = rootCmd.Flags().Set("root", "")
		zap.ReplaceGlobals(zap.NewNop())
	})
}

func TestBoot_OverlayFeedsConfig(t *testing.T) {
	unset(t, append(append([]string{}, env.Required...), env.Mailgun, "VAULT_ADDR", "APP_HTTP__LISTEN_ADDR")...)

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "DB_HOST=db\nDB_PORT=3306\nDB_USERNAME=u\nDB_PASSWORD=p\nDB_NAME=billing\n" +
		"APP_HTTP__LISTEN_ADDR=127.0.0.1:9999\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	setFlags(t, path, dir)

	a, err := boot(context.Background(), rootCmd)
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.Equal(t, "127.0.0.1:9999", a.cfg.HTTP.ListenAddr)
	assert.NotNil(t, a.reg.Handler())
}

func TestBoot_MalformedOverlayStops(t *testing.T) {
	unset(t, "VAULT_ADDR")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BROKEN='unterminated\n"), 0o600))
	setFlags(t, path, dir)

	_, err := boot(context.Background(), rootCmd)
	assert.ErrorIs(t, err, env.ErrOverlayParse)
}
