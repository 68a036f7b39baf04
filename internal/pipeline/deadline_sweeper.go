// Package pipeline holds the background loops of the settlement engine: the
// deadline sweeper that closes expired questions and the ledger archiver
// that offloads old entries to object storage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredCloser closes every active question past its deadline and returns
// the number closed.
type ExpiredCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int, error)
}

// DeadlineSweeper periodically flips active questions whose deadline has
// passed to closed. Stake placement already rejects past-deadline questions
// on its own, so the sweeper only makes the status catch up with the clock.
type DeadlineSweeper struct {
	questions ExpiredCloser
	logger    *slog.Logger
}

// NewDeadlineSweeper creates a DeadlineSweeper.
func NewDeadlineSweeper(questions ExpiredCloser, logger *slog.Logger) *DeadlineSweeper {
	return &DeadlineSweeper{
		questions: questions,
		logger:    logger,
	}
}

// Run executes a single sweep.
func (s *DeadlineSweeper) Run(ctx context.Context) error {
	closed, err := s.questions.CloseExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sweeping expired questions: %w", err)
	}
	if closed > 0 {
		s.logger.Info("closed expired questions", slog.Int("count", closed))
	}
	return nil
}

// RunLoop runs the sweeper on a repeating interval until the context is
// cancelled.
func (s *DeadlineSweeper) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := s.Run(ctx); err != nil {
		s.logger.Error("deadline sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("deadline sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
