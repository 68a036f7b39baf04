package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the background goroutines: the deadline sweeper and,
// when blob storage is configured, the ledger archive loop.
type Orchestrator struct {
	sweeper         *DeadlineSweeper
	archiveLoop     *LedgerArchiveLoop
	sweepInterval   time.Duration
	archiveInterval time.Duration
	logger          *slog.Logger
}

// NewOrchestrator creates an Orchestrator. archiveLoop may be nil when no
// blob storage is configured.
func NewOrchestrator(
	sweeper *DeadlineSweeper,
	archiveLoop *LedgerArchiveLoop,
	sweepInterval time.Duration,
	archiveInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sweeper:         sweeper,
		archiveLoop:     archiveLoop,
		sweepInterval:   sweepInterval,
		archiveInterval: archiveInterval,
		logger:          logger,
	}
}

// Run starts every loop as a concurrent goroutine using an errgroup. Each
// goroutine respects ctx cancellation; a non-context error from any loop
// cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("sweep_interval", o.sweepInterval),
		slog.Duration("archive_interval", o.archiveInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting deadline sweeper loop")
		err := o.sweeper.RunLoop(ctx, o.sweepInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("deadline sweeper: %w", err)
	})

	if o.archiveLoop != nil {
		g.Go(func() error {
			o.logger.Info("starting ledger archive loop")
			err := o.archiveLoop.RunLoop(ctx, o.archiveInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("ledger archive loop: %w", err)
		})
	}

	err := g.Wait()
	o.logger.Info("pipeline orchestrator stopped")
	return err
}
