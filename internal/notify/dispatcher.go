package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Dispatcher consumes notification intents from a buffered queue and fans
// each one out to all senders. Enqueue never blocks the producer: when the
// queue is full the intent is dropped and logged, because settlement must not
// wait on notification delivery.
type Dispatcher struct {
	senders []Sender
	queue   chan Intent
	workers int
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given senders, queue capacity,
// and worker count.
func NewDispatcher(senders []Sender, queueSize, workers int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 2
	}
	return &Dispatcher{
		senders: senders,
		queue:   make(chan Intent, queueSize),
		workers: workers,
		logger:  logger.With(slog.String("component", "notify_dispatcher")),
	}
}

// Enqueue hands an intent to the dispatcher without blocking. It returns
// false when the queue is full and the intent was dropped.
func (d *Dispatcher) Enqueue(n Intent) bool {
	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn("notification queue full, dropping intent",
			slog.String("event", string(n.Event)),
			slog.String("recipient", n.Recipient),
		)
		return false
	}
}

// Run starts the worker goroutines and blocks until the context is
// cancelled. Sender failures are logged per recipient and swallowed; one
// failed delivery never prevents the remaining senders or intents from being
// attempted.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case n := <-d.queue:
					d.deliver(ctx, n)
				}
			}
		})
	}

	return g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n Intent) {
	for _, s := range d.senders {
		if err := s.Send(ctx, n); err != nil {
			d.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", string(n.Event)),
				slog.String("recipient", n.Recipient),
				slog.String("error", err.Error()),
			)
			continue
		}
		d.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", string(n.Event)),
			slog.String("recipient", n.Recipient),
		)
	}
}
