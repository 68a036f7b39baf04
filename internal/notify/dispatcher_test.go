package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	name string
	fail bool
	sent []Intent
}

func (r *recordingSender) Send(ctx context.Context, n Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("delivery refused")
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversToAllSenders(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b"}
	d := NewDispatcher([]Sender{a, b}, 8, 2, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.True(t, d.Enqueue(Intent{Event: EventBetResolvedUser, Recipient: "u1"}))
	require.True(t, d.Enqueue(Intent{Event: EventQuestionResolvedOrg, Recipient: "o1"}))

	require.Eventually(t, func() bool {
		return a.count() == 2 && b.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherContinuesPastFailingSender(t *testing.T) {
	bad := &recordingSender{name: "bad", fail: true}
	good := &recordingSender{name: "good"}
	d := NewDispatcher([]Sender{bad, good}, 8, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.True(t, d.Enqueue(Intent{Event: EventBetResolvedUser, Recipient: "u1"}))

	require.Eventually(t, func() bool { return good.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, bad.count())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	// No Run call: nothing drains the queue.
	d := NewDispatcher(nil, 2, 1, discardLogger())

	assert.True(t, d.Enqueue(Intent{Recipient: "u1"}))
	assert.True(t, d.Enqueue(Intent{Recipient: "u2"}))
	assert.False(t, d.Enqueue(Intent{Recipient: "u3"}))
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	d := NewDispatcher(nil, 2, 2, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}
