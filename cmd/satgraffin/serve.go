package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	httpserver "github.com/satgraffin/satgraffin/internal/adapters/driving/http"
	"github.com/satgraffin/satgraffin/internal/config"
	"github.com/satgraffin/satgraffin/internal/core/services"
	"github.com/satgraffin/satgraffin/internal/worker"
)

var serveMode string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background refresh worker",
	Long: `Run the service.

Modes:
  all     HTTP API and worker in one process (default)
  api     HTTP API only; reloads the index when workers save a new one
  worker  background refresh worker only`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "run mode: all, api or worker (overrides RUN_MODE)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if serveMode != "" {
		cfg.Server.Mode = serveMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	mode := cfg.Server.Mode

	logger.Info("starting satgraffin",
		"version", version,
		"mode", mode,
		"homepage", cfg.Site.HomepageURL,
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.connectBackends(ctx, hostname()); err != nil {
		return err
	}

	switch mode {
	case config.ModeAll:
		return runAll(ctx, a)
	case config.ModeAPI:
		return runAPI(ctx, a)
	case config.ModeWorker:
		return runWorkerMode(ctx, a)
	default:
		return fmt.Errorf("unknown run mode %q (use: all, api or worker)", mode)
	}
}

func runAll(ctx context.Context, a *app) error {
	w := newWorker(a)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer w.Stop()

	return serveHTTP(ctx, a)
}

// runAPI answers queries while separate worker processes index. Handles
// published by workers reach this process through the reloader.
func runAPI(ctx context.Context, a *app) error {
	reloader := services.NewReloader(services.ReloaderConfig{
		Vectors:      a.vectors,
		Indexing:     a.indexing,
		Retrieval:    a.retrieval,
		Logger:       a.logger,
		PollInterval: a.cfg.ReloadInterval(),
	})
	reloader.Start(ctx)
	defer reloader.Stop()

	return serveHTTP(ctx, a)
}

func runWorkerMode(ctx context.Context, a *app) error {
	w := newWorker(a)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	a.logger.Info("worker running", "concurrency", a.cfg.Worker.Concurrency)

	<-ctx.Done()
	a.logger.Info("shutting down worker")
	w.Stop()
	return nil
}

func newWorker(a *app) *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.queue,
		Indexing:       a.indexing,
		Lock:           a.lock,
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.DequeueTimeout(),
		LockTTL:        a.cfg.LockTTL(),
	})
}

func serveHTTP(ctx context.Context, a *app) error {
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = a.cfg.Server.Host
	serverCfg.Port = a.cfg.Server.Port
	serverCfg.Version = version
	if len(a.cfg.Server.AllowedOrigins) > 0 {
		serverCfg.AllowedOrigins = a.cfg.Server.AllowedOrigins
	}

	authService := a.authService()
	if authService == nil {
		a.logger.Info("admin API disabled; set ADMIN_PASSWORD_HASH to enable it")
	}

	server := httpserver.NewServer(
		serverCfg,
		a.queryService(ctx),
		a.indexing,
		authService,
		a.queue,
		a.checks,
		a.logger,
	)

	return server.Start(ctx)
}
