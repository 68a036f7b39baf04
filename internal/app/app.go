// Package app provides the top-level application lifecycle for the
// settlement engine. It wires together all dependencies (store, cache, blob
// storage, services, notifications) and runs the background loops until the
// context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pactas/pactas/internal/config"
	"github.com/pactas/pactas/internal/pipeline"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// notification dispatcher and background loops, and blocks until the context
// is cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("s3", a.cfg.S3.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Dispatcher.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	var archiveLoop *pipeline.LedgerArchiveLoop
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		archiveLoop = pipeline.NewLedgerArchiveLoop(deps.Archiver, a.cfg.Archive.Retention.Duration,
			a.logger.With(slog.String("component", "archive")))
	}

	if a.cfg.Sweeper.Enabled || archiveLoop != nil {
		var sweeper *pipeline.DeadlineSweeper
		if a.cfg.Sweeper.Enabled {
			sweeper = pipeline.NewDeadlineSweeper(deps.Questions,
				a.logger.With(slog.String("component", "sweeper")))
		}

		g.Go(func() error {
			var err error
			if sweeper == nil {
				err = archiveLoop.RunLoop(ctx, a.cfg.Archive.Interval.Duration)
			} else {
				orch := pipeline.NewOrchestrator(sweeper, archiveLoop,
					a.cfg.Sweeper.Interval.Duration, a.cfg.Archive.Interval.Duration,
					a.logger.With(slog.String("component", "pipeline")))
				err = orch.Run(ctx)
			}
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return err
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
