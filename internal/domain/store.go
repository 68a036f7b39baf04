package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// LedgerTx is the transaction-scoped view of the ledger store. Every method
// sees the transaction's own uncommitted writes; either all mutations commit
// together or none do. Implementations must provide serializable (or
// equivalent) isolation: it is the only mechanism settlement relies on to
// prevent two resolutions of the same question from both succeeding.
type LedgerTx interface {
	// GetAccount returns the account or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (Account, error)
	// PlatformAccount returns the singleton platform fee account.
	PlatformAccount(ctx context.Context) (Account, error)
	// CreateAccount inserts a new account row.
	CreateAccount(ctx context.Context, a Account) error
	// UpdateBalance applies a signed delta to an account balance. It returns
	// ErrInsufficientBalance when the result would be negative, leaving the
	// balance unchanged. Callers pair every call with AppendEntry in the
	// same transaction; a bare balance write has no legitimate caller.
	UpdateBalance(ctx context.Context, accountID string, delta int64) error
	// SumEntries returns the signed sum of all ledger entries referencing
	// the account, for reconciliation against the stored balance.
	SumEntries(ctx context.Context, accountID string) (int64, error)

	// GetQuestion returns the question or ErrQuestionNotFound. Row-locking
	// implementations lock the row for the remainder of the transaction.
	GetQuestion(ctx context.Context, id string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) error
	// UpdateQuestionStatus transitions the question; resolvedAt is non-nil
	// only for the terminal resolved states.
	UpdateQuestionStatus(ctx context.Context, id string, status QuestionStatus, resolvedAt *time.Time) error

	CreateStake(ctx context.Context, s Stake) error
	// StakesForQuestion returns all stakes on the question ordered by
	// creation time then id, for reproducible payout ordering.
	StakesForQuestion(ctx context.Context, questionID string) ([]Stake, error)

	// AppendEntry appends to the immutable transaction log.
	AppendEntry(ctx context.Context, e LedgerEntry) error
}

// LedgerStore is the durable, transactional store for accounts, questions,
// stakes and the transaction log.
type LedgerStore interface {
	// InTx runs fn inside one atomic, serializable transaction. fn returning
	// an error rolls everything back and the error is surfaced to the
	// caller. Implementations may retry fn on serialization conflicts, so fn
	// must be free of side effects outside the transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	// Read-only paths that do not need transactional isolation.
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, status QuestionStatus, opts ListOpts) ([]Question, error)
	// ListExpired returns active questions whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]Question, error)
	StakesForQuestion(ctx context.Context, questionID string) ([]Stake, error)
	StakesForUser(ctx context.Context, userID string, opts ListOpts) ([]Stake, error)
	// PoolTotals aggregates stake amounts per side for a question.
	PoolTotals(ctx context.Context, questionID string) (PoolTotals, error)
	EntriesForQuestion(ctx context.Context, questionID string) ([]LedgerEntry, error)
	EntriesForAccount(ctx context.Context, accountID string, opts ListOpts) ([]LedgerEntry, error)
}
