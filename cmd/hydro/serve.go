package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/swiss-hydro-service/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/swiss-hydro-service/internal/adapter/http"
	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/couchcryptid/swiss-hydro-service/internal/query"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop and the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateFeeds(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	rs := newRefreshStack(cfg, logger, metrics)
	defer rs.close(logger)

	// Serve the last persisted snapshot until the first refresh lands.
	if err := rs.snapshots.Warm(); err != nil && !errors.Is(err, filestore.ErrNoSnapshot) {
		logger.Warn("could not restore persisted snapshot", "error", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, query.NewService(rs.snapshots), rs.snapshots, rs.pipeline, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := rs.pipeline.Run(gctx); err != nil {
			return fmt.Errorf("refresh loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.Error("service stopped", "error", err)
	}
	logger.Info("shutdown complete")
	return err
}
