package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EntryArchiver offloads ledger entries older than the cutoff and returns
// the number archived.
type EntryArchiver interface {
	ArchiveEntries(ctx context.Context, before time.Time) (int64, error)
}

// LedgerArchiveLoop periodically copies old ledger entries to blob storage.
// The primary ledger is never pruned here; the copies exist so audits do not
// have to hit the live database for historical months.
type LedgerArchiveLoop struct {
	archiver  EntryArchiver
	retention time.Duration
	logger    *slog.Logger
}

// NewLedgerArchiveLoop creates a LedgerArchiveLoop. retention is how far
// back entries stay un-archived; anything older gets copied out on each run.
func NewLedgerArchiveLoop(archiver EntryArchiver, retention time.Duration, logger *slog.Logger) *LedgerArchiveLoop {
	return &LedgerArchiveLoop{
		archiver:  archiver,
		retention: retention,
		logger:    logger,
	}
}

// Run executes a single archive pass.
func (l *LedgerArchiveLoop) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-l.retention)
	count, err := l.archiver.ArchiveEntries(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving ledger entries before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if count > 0 {
		l.logger.Info("archived ledger entries",
			slog.Int64("count", count),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}

// RunLoop runs the archiver on a repeating interval until the context is
// cancelled.
func (l *LedgerArchiveLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ledger archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.Run(ctx); err != nil {
				l.logger.Error("ledger archive failed", slog.String("error", err.Error()))
			}
		}
	}
}
