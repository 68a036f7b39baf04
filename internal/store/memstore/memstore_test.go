package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactas/pactas/internal/domain"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		if err := tx.CreateAccount(ctx, domain.Account{
			ID:    "alice",
			Kind:  domain.AccountKindUser,
			Name:  "alice",
			Email: "alice@example.com",
		}); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, "alice", 100); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetAccount(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUpdateBalanceFloor(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		if err := tx.CreateAccount(ctx, domain.Account{ID: "alice", Kind: domain.AccountKindUser, Name: "alice"}); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, "alice", 50); err != nil {
			return err
		}
		err := tx.UpdateBalance(ctx, "alice", -51)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
		return tx.UpdateBalance(ctx, "alice", -50)
	})
	require.NoError(t, err)

	account, err := s.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, account.Balance)
}

func TestEmailUniqueness(t *testing.T) {
	s := New()
	create := func(id, email string) error {
		return s.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
			return tx.CreateAccount(ctx, domain.Account{ID: id, Kind: domain.AccountKindUser, Name: id, Email: email})
		})
	}

	require.NoError(t, create("a", "x@example.com"))
	assert.ErrorIs(t, create("b", "X@Example.COM"), domain.ErrAlreadyExists)
}

func TestStakesForQuestionOrdering(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := s.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		if err := tx.CreateAccount(ctx, domain.Account{ID: "org", Kind: domain.AccountKindOrganization, Name: "org"}); err != nil {
			return err
		}
		if err := tx.CreateQuestion(ctx, domain.Question{ID: "q", OrganizationID: "org", Status: domain.QuestionStatusActive, Deadline: base.Add(time.Hour)}); err != nil {
			return err
		}
		// Insert out of order; ties on CreatedAt break by id.
		for _, st := range []domain.Stake{
			{ID: "s3", UserID: "u", QuestionID: "q", Amount: 1, Prediction: domain.PredictionYes, CreatedAt: base.Add(time.Minute)},
			{ID: "s2", UserID: "u", QuestionID: "q", Amount: 1, Prediction: domain.PredictionYes, CreatedAt: base},
			{ID: "s1", UserID: "u", QuestionID: "q", Amount: 1, Prediction: domain.PredictionYes, CreatedAt: base},
		} {
			if err := tx.CreateStake(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	stakes, err := s.StakesForQuestion(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, stakes, 3)
	assert.Equal(t, "s1", stakes[0].ID)
	assert.Equal(t, "s2", stakes[1].ID)
	assert.Equal(t, "s3", stakes[2].ID)
}

func TestPlatformAccountSeeded(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		platform, err := tx.PlatformAccount(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, PlatformAccountID, platform.ID)
		assert.Equal(t, domain.AccountKindPlatform, platform.Kind)
		return nil
	})
	require.NoError(t, err)
}
