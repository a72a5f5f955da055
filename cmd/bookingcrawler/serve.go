package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/api"
	"github.com/JakeFAU/booking-crawler/internal/app"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and status, starting crawls on request",
		Long: `Starts the operator HTTP server. POST /v1/runs starts a crawl in the
background; GET /v1/status reports progress; GET /metrics exposes Prometheus
collectors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return serve(ctx, a, runOnStart)
			})
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run", false, "start one crawl as soon as the server is up")
	return cmd
}

func serve(ctx context.Context, a *app.App, runOnStart bool) error {
	cfg := a.Config()
	logger := a.Logger()
	server := api.NewServer(ctx, a.Orchestrator(), a.Metrics(), api.Config{APIKey: cfg.Server.APIKey}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if runOnStart {
		if err := server.StartRun(); err != nil {
			logger.Error("startup run failed", zap.Error(err))
		}
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown http server: %w", err))
	}
	server.Wait()
	return serveErr
}
