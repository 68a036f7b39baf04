package domain

import "context"

// PoolCache provides fast access to per-question stake totals. It lives
// strictly outside the transactional boundary: it is updated best-effort
// after commit and a miss always falls back to the store.
type PoolCache interface {
	Set(ctx context.Context, totals PoolTotals) error
	// Add increments one side's running total after a stake commits.
	Add(ctx context.Context, questionID string, prediction Prediction, amount int64) error
	// Get returns the cached totals or ErrNotFound on a miss.
	Get(ctx context.Context, questionID string) (PoolTotals, error)
	Invalidate(ctx context.Context, questionID string) error
}

// SignalBus publishes domain events for external consumers (push layers,
// dashboards). Delivery is fire-and-forget. The engine only ever produces
// events; consuming them is left to the concrete bus implementation.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
