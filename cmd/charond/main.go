package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charon-sso/charon/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(false)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev {
		logger = bootstrap.InitLogger(true)
	}

	logger.InfoContext(ctx, "starting charon",
		"ticket_backend", cfg.Tickets.Backend,
		"service_registry", registryKind(cfg.Postgres.Enabled),
		"policy_mode", cfg.Auth.PolicyMode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.ErrorContext(ctx, "shutdown cleanup failed", "error", cerr)
		}
	}()

	if app.Sweeper == nil {
		logger.InfoContext(ctx, "ticket sweeping disabled, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	}
	return app.Sweeper.Run(ctx)
}

func registryKind(postgres bool) string {
	if postgres {
		return "postgres"
	}
	return "memory"
}
