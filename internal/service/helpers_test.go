package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pactas/pactas/internal/domain"
	"github.com/pactas/pactas/internal/store/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedAccount creates an account of the given kind directly in the store and
// optionally funds it with a deposit entry so reconciliation holds.
func seedAccount(t *testing.T, store *memstore.Store, kind domain.AccountKind, name string, balance int64) domain.Account {
	t.Helper()

	account := domain.Account{
		ID:        name,
		Kind:      kind,
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		if balance == 0 {
			return nil
		}
		if err := tx.UpdateBalance(ctx, account.ID, balance); err != nil {
			return err
		}
		entry := domain.LedgerEntry{Amount: balance, Kind: domain.EntryKindDeposit, CreatedAt: account.CreatedAt}
		if kind == domain.AccountKindOrganization {
			entry.OrganizationID = account.ID
		} else {
			entry.UserID = account.ID
		}
		return tx.AppendEntry(ctx, entry)
	})
	require.NoError(t, err)

	account.Balance = balance
	return account
}

// seedQuestion creates a question in the given status with a deadline one
// hour out (or one hour past for expired fixtures).
func seedQuestion(t *testing.T, store *memstore.Store, orgID string, status domain.QuestionStatus, deadline time.Time) domain.Question {
	t.Helper()

	q := domain.Question{
		ID:             "q-" + string(status) + "-" + deadline.Format("150405.000000000"),
		OrganizationID: orgID,
		Title:          "Will it rain tomorrow?",
		Description:    "Resolved against the official forecast.",
		Status:         status,
		Deadline:       deadline,
		Tags:           []string{"ENVIRONNEMENT"},
		CreatedAt:      time.Now().UTC(),
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx domain.LedgerTx) error {
		return tx.CreateQuestion(ctx, q)
	})
	require.NoError(t, err)
	return q
}

func balanceOf(t *testing.T, store *memstore.Store, accountID string) int64 {
	t.Helper()

	account, err := store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}
