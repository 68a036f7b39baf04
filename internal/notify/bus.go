package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pactas/pactas/internal/domain"
)

// BusSender publishes notifications on the signal bus so external consumers
// (dashboards, push layers) can react to settlements without the engine
// knowing about them.
type BusSender struct {
	bus     domain.SignalBus
	channel string
}

// NewBusSender creates a BusSender publishing to the given channel.
func NewBusSender(bus domain.SignalBus, channel string) *BusSender {
	return &BusSender{bus: bus, channel: channel}
}

// Send publishes the intent as a JSON event.
func (b *BusSender) Send(ctx context.Context, n Intent) error {
	payload, err := json.Marshal(map[string]any{
		"event":     string(n.Event),
		"recipient": n.Recipient,
		"title":     n.Title,
		"data":      n.Payload,
	})
	if err != nil {
		return fmt.Errorf("bus: marshal payload: %w", err)
	}
	if err := b.bus.Publish(ctx, b.channel, payload); err != nil {
		return fmt.Errorf("bus: publish: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (b *BusSender) Name() string {
	return "signal_bus"
}
