package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactas/pactas/internal/domain"
	"github.com/pactas/pactas/internal/service"
	"github.com/pactas/pactas/internal/store/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeadlineSweeperClosesExpired(t *testing.T) {
	store := memstore.New()
	err := store.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		if err := tx.CreateAccount(ctx, domain.Account{
			ID:   "org",
			Kind: domain.AccountKindOrganization,
			Name: "org",
		}); err != nil {
			return err
		}
		if err := tx.CreateQuestion(ctx, domain.Question{
			ID:             "expired",
			OrganizationID: "org",
			Title:          "past deadline",
			Status:         domain.QuestionStatusActive,
			Deadline:       time.Now().Add(-time.Hour),
		}); err != nil {
			return err
		}
		return tx.CreateQuestion(ctx, domain.Question{
			ID:             "open",
			OrganizationID: "org",
			Title:          "future deadline",
			Status:         domain.QuestionStatusActive,
			Deadline:       time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	questions := service.NewQuestionService(store, testLogger())
	sweeper := NewDeadlineSweeper(questions, testLogger())
	require.NoError(t, sweeper.Run(context.Background()))

	expired, err := store.GetQuestion(context.Background(), "expired")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusClosed, expired.Status)

	open, err := store.GetQuestion(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusActive, open.Status)

	// A second sweep is a no-op.
	require.NoError(t, sweeper.Run(context.Background()))
}

func TestDeadlineSweeperLoopStopsOnCancel(t *testing.T) {
	store := memstore.New()
	questions := service.NewQuestionService(store, testLogger())
	sweeper := NewDeadlineSweeper(questions, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweeper.RunLoop(ctx, 10*time.Millisecond)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper loop did not stop on cancel")
	}
}
