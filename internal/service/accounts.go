package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pactas/pactas/internal/domain"
)

const minPasswordLength = 8

// AccountService manages user and organization accounts and their direct
// balance movements (deposits and withdrawals).
type AccountService struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(store domain.LedgerStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

// RegisterUser creates a user account with a bcrypt-hashed password and a
// zero starting balance.
func (s *AccountService) RegisterUser(ctx context.Context, name, email, password string) (domain.Account, error) {
	return s.register(ctx, domain.AccountKindUser, name, email, password)
}

// RegisterOrganization creates an organization account. Organizations own
// questions and collect commission on resolution.
func (s *AccountService) RegisterOrganization(ctx context.Context, name, email, password string) (domain.Account, error) {
	return s.register(ctx, domain.AccountKindOrganization, name, email, password)
}

func (s *AccountService) register(ctx context.Context, kind domain.AccountKind, name, email, password string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, fmt.Errorf("account_service: register: %w", domain.ErrInvalidAccount)
	}
	if len(password) < minPasswordLength {
		return domain.Account{}, fmt.Errorf("account_service: register: password too short: %w", domain.ErrInvalidAccount)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: hash password: %w", err)
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Kind:         kind,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: register %q: %w", email, err)
	}

	s.logger.InfoContext(ctx, "account_service: account registered",
		slog.String("account_id", account.ID),
		slog.String("kind", string(account.Kind)),
	)

	return account, nil
}

// Authenticate checks an email and password pair and returns the matching
// account. The same error comes back for an unknown email and a wrong
// password.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: authenticate: %w", domain.ErrAccountNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: authenticate: %w", domain.ErrAccountNotFound)
	}
	return account, nil
}

// Get returns an account by ID.
func (s *AccountService) Get(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: get %q: %w", accountID, err)
	}
	return account, nil
}

// Deposit credits an account and records a deposit entry.
func (s *AccountService) Deposit(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("account_service: deposit: %w", domain.ErrInvalidAmount)
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if err := tx.UpdateBalance(ctx, account.ID, amount); err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		return tx.AppendEntry(ctx, entryFor(account, domain.EntryKindDeposit, amount))
	})
	if err != nil {
		return fmt.Errorf("account_service: deposit to %q: %w", accountID, err)
	}

	s.logger.InfoContext(ctx, "account_service: deposit",
		slog.String("account_id", accountID),
		slog.Int64("amount", amount),
	)
	return nil
}

// Withdraw debits an account and records a withdrawal entry. A withdrawal
// that would push the balance negative fails with ErrInsufficientBalance.
func (s *AccountService) Withdraw(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("account_service: withdraw: %w", domain.ErrInvalidAmount)
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if err := tx.UpdateBalance(ctx, account.ID, -amount); err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		return tx.AppendEntry(ctx, entryFor(account, domain.EntryKindWithdrawal, -amount))
	})
	if err != nil {
		return fmt.Errorf("account_service: withdraw from %q: %w", accountID, err)
	}

	s.logger.InfoContext(ctx, "account_service: withdrawal",
		slog.String("account_id", accountID),
		slog.Int64("amount", amount),
	)
	return nil
}

// Reconcile compares an account's balance against the sum of its ledger
// entries and returns the drift. A zero drift means the ledger fully
// explains the balance; anything else signals a missing or spurious entry.
func (s *AccountService) Reconcile(ctx context.Context, accountID string) (int64, error) {
	var drift int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		sum, err := tx.SumEntries(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("sum entries: %w", err)
		}
		drift = account.Balance - sum
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("account_service: reconcile %q: %w", accountID, err)
	}

	if drift != 0 {
		s.logger.ErrorContext(ctx, "account_service: ledger drift detected",
			slog.String("account_id", accountID),
			slog.Int64("drift", drift),
		)
		return drift, fmt.Errorf("account_service: reconcile %q: drift %d: %w", accountID, drift, domain.ErrLedgerIntegrity)
	}
	return 0, nil
}

// entryFor builds a deposit or withdrawal entry attributed to the right
// party column for the account's kind.
func entryFor(account domain.Account, kind domain.EntryKind, amount int64) domain.LedgerEntry {
	e := domain.LedgerEntry{
		Amount:    amount,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if account.Kind == domain.AccountKindOrganization {
		e.OrganizationID = account.ID
	} else {
		e.UserID = account.ID
	}
	return e
}
