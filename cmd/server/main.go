// Package main provides the entry point for the veogen HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/veogen/internal/bootstrap"
	"github.com/maauso/veogen/internal/config"
	"github.com/maauso/veogen/internal/job"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting veogen",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend),
		slog.String("dispatch_mode", cfg.DispatchMode),
		slog.String("output_dir", cfg.OutputDir),
		slog.Int("max_variations", cfg.MaxVariations),
		slog.Int("variation_concurrency", cfg.VariationConcurrency),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	ctx := context.Background()
	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      deps.Router(logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(sigCtx, srv, ln, deps.Service, 30*time.Second, logger)
}

// serve runs srv on ln until ctx is done or the server fails, then shuts
// down. In-flight requests see their context cancelled so sync generations
// stop polling and answer with what they already saved. Background tasks
// are stopped even when the HTTP shutdown fails.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, svc *job.Service, timeout time.Duration, logger *slog.Logger) error {
	reqCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	srv.BaseContext = func(net.Listener) context.Context { return reqCtx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", ln.Addr().String()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down server...")
	cancelRequests()

	var httpErr, taskErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		httpErr = fmt.Errorf("shutdown failed: %w", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		taskErr = fmt.Errorf("stop background tasks: %w", err)
	}

	if err := errors.Join(serveErr, httpErr, taskErr); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

// writeTimeout bounds the longest sync tool call: every variation batch
// exhausting the extended poll budget.
func writeTimeout(cfg *config.Config) time.Duration {
	batches := cfg.MaxVariations
	if c := cfg.VariationConcurrency; c > 1 {
		batches = (cfg.MaxVariations + c - 1) / c
	}
	perVariation := time.Duration(cfg.ExtendedMaxPolls+1) * cfg.PollInterval()
	return time.Duration(max(batches, 1))*perVariation + time.Minute
}
