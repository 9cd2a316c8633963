package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/billing-api/internal/server"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides http.listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := boot(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	httpCfg := a.cfg.HTTP
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		httpCfg.ListenAddr = addr
	}
	srv := server.New(httpCfg, a.reg.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		a.log.Errorw("server stopped", "err", err)
		return err
	}
	a.log.Infow("server stopped")
	return nil
}
