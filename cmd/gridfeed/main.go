package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridfeed/gridfeed/internal/adapters/export"
	"github.com/gridfeed/gridfeed/internal/app"
	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/pkg/logger"
	"github.com/gridfeed/gridfeed/pkg/metrics"
)

const metricsReadHeaderTimeout = 5 * time.Second

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional metrics listener for scrape-during-run setups.
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn(ctx, "metrics server failed", logger.Error(err))
			}
		}()
		defer srv.Close()
	}

	svc, err := app.New(cfg)
	if err != nil {
		log.Error(ctx, "failed to build pipeline", logger.Error(err))
		os.Exit(1)
	}

	result, err := svc.Run(ctx)
	if err != nil {
		log.Error(ctx, "pipeline run failed", logger.Error(err))
		os.Exit(1)
	}

	if err := svc.Close(ctx); err != nil {
		log.Warn(ctx, "failed to persist knowledge base", logger.Error(err))
	}

	writer := export.NewWriter(export.WithCalendarName(cfg.Output.CalendarName))
	if err := writer.Write(cfg.Output.ICSPath, result.Events); err != nil {
		log.Error(ctx, "failed to write calendar", logger.Error(err))
		os.Exit(1)
	}

	log.Info(ctx, "schedule exported",
		logger.String("path", cfg.Output.ICSPath),
		logger.Int("events", len(result.Events)),
		logger.Int("quiet_removals", len(result.Removed)),
		logger.Int("sources_failed", result.Stats.Failed),
	)
}
