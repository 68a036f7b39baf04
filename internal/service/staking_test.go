package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactas/pactas/internal/domain"
	"github.com/pactas/pactas/internal/store/memstore"
)

func TestPlaceStakeDebitsAndRecords(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 500)
	q := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	svc := NewStakingService(store, testLogger())
	stake, err := svc.PlaceStake(context.Background(), "alice", q.ID, 150, domain.PredictionYes)
	require.NoError(t, err)

	assert.NotEmpty(t, stake.ID)
	assert.Equal(t, int64(150), stake.Amount)
	assert.Equal(t, int64(350), balanceOf(t, store, "alice"))

	stakes, err := store.StakesForQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, stakes, 1)

	entries, err := store.EntriesForAccount(context.Background(), "alice", domain.ListOpts{})
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Kind == domain.EntryKindStake {
			found = true
			assert.Equal(t, int64(-150), e.Amount)
			assert.Equal(t, q.ID, e.QuestionID)
		}
	}
	assert.True(t, found, "expected a stake ledger entry")
}

func TestPlaceStakeInsufficientBalance(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 50)
	q := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	svc := NewStakingService(store, testLogger())
	_, err := svc.PlaceStake(context.Background(), "alice", q.ID, 51, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// The rejected stake must leave no trace.
	assert.Equal(t, int64(50), balanceOf(t, store, "alice"))
	stakes, err := store.StakesForQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Empty(t, stakes)

	// Staking the exact balance is allowed; the floor is zero, not one.
	_, err = svc.PlaceStake(context.Background(), "alice", q.ID, 50, domain.PredictionYes)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balanceOf(t, store, "alice"))
}

func TestPlaceStakeRejectsClosedAndExpired(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 100)

	closed := seedQuestion(t, store, "org", domain.QuestionStatusClosed, time.Now().Add(time.Hour))
	expired := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(-time.Minute))

	svc := NewStakingService(store, testLogger())

	_, err := svc.PlaceStake(context.Background(), "alice", closed.ID, 10, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrQuestionNotOpen)

	// Past-deadline questions reject stakes even before the sweeper has
	// flipped their status.
	_, err = svc.PlaceStake(context.Background(), "alice", expired.ID, 10, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrQuestionNotOpen)

	assert.Equal(t, int64(100), balanceOf(t, store, "alice"))
}

func TestPlaceStakeValidation(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 100)
	q := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	svc := NewStakingService(store, testLogger())

	_, err := svc.PlaceStake(context.Background(), "alice", q.ID, 0, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.PlaceStake(context.Background(), "alice", q.ID, -5, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.PlaceStake(context.Background(), "alice", q.ID, 10, domain.Prediction("maybe"))
	require.ErrorIs(t, err, domain.ErrInvalidPrediction)

	_, err = svc.PlaceStake(context.Background(), "alice", "missing", 10, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)

	_, err = svc.PlaceStake(context.Background(), "nobody", q.ID, 10, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	// Organizations cannot stake on their own or anyone else's questions.
	_, err = svc.PlaceStake(context.Background(), "org", q.ID, 10, domain.PredictionYes)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestStatsFor(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 300)
	seedAccount(t, store, domain.AccountKindUser, "bob", 100)

	won := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))
	pending := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(2*time.Hour))

	staking := NewStakingService(store, testLogger())
	_, err := staking.PlaceStake(context.Background(), "alice", won.ID, 100, domain.PredictionYes)
	require.NoError(t, err)
	_, err = staking.PlaceStake(context.Background(), "bob", won.ID, 100, domain.PredictionNo)
	require.NoError(t, err)
	_, err = staking.PlaceStake(context.Background(), "alice", pending.ID, 50, domain.PredictionNo)
	require.NoError(t, err)

	questions := NewQuestionService(store, testLogger())
	require.NoError(t, questions.Close(context.Background(), won.ID))
	_, err = NewResolutionService(store, domain.DefaultSplit, testLogger()).
		Resolve(context.Background(), won.ID, domain.PredictionYes)
	require.NoError(t, err)

	stats, err := staking.StatsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStakes)
	assert.Equal(t, int64(150), stats.TotalStaked)
	assert.Equal(t, 1, stats.Won)
	assert.Equal(t, 0, stats.Lost)
	assert.Equal(t, 1, stats.Pending)
	assert.Positive(t, stats.TotalWinnings)

	stats, err = staking.StatsFor(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Lost)
	assert.Zero(t, stats.TotalWinnings)
}
