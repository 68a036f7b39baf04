// Package memstore provides an in-memory domain.LedgerStore. It backs the
// service tests and doubles as a dependency-free dev backend. A single store
// mutex serializes transactions, and InTx snapshots state up front so a
// failing unit of work rolls back completely, matching the transactional
// contract of the PostgreSQL store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pactas/pactas/internal/domain"
)

// Store implements domain.LedgerStore in memory.
type Store struct {
	mu        sync.Mutex
	accounts  map[string]domain.Account
	questions map[string]domain.Question
	stakes    []domain.Stake
	entries   []domain.LedgerEntry
}

// New creates an empty Store with a seeded platform account, mirroring the
// migration seed of the PostgreSQL store.
func New() *Store {
	s := &Store{
		accounts:  make(map[string]domain.Account),
		questions: make(map[string]domain.Question),
	}
	s.accounts[PlatformAccountID] = domain.Account{
		ID:        PlatformAccountID,
		Kind:      domain.AccountKindPlatform,
		Name:      "platform",
		CreatedAt: time.Now().UTC(),
	}
	return s
}

// PlatformAccountID is the fixed id of the seeded platform account.
const PlatformAccountID = "00000000-0000-0000-0000-000000000001"

// InTx runs fn under the store mutex. State is snapshotted first; if fn
// returns an error every mutation it made is discarded.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx, (*txView)(s)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memState struct {
	accounts  map[string]domain.Account
	questions map[string]domain.Question
	stakes    []domain.Stake
	entries   []domain.LedgerEntry
}

func (s *Store) snapshot() memState {
	st := memState{
		accounts:  make(map[string]domain.Account, len(s.accounts)),
		questions: make(map[string]domain.Question, len(s.questions)),
		stakes:    append([]domain.Stake(nil), s.stakes...),
		entries:   append([]domain.LedgerEntry(nil), s.entries...),
	}
	for id, a := range s.accounts {
		st.accounts[id] = a
	}
	for id, q := range s.questions {
		st.questions[id] = q
	}
	return st
}

func (s *Store) restore(st memState) {
	s.accounts = st.accounts
	s.questions = st.questions
	s.stakes = st.stakes
	s.entries = st.entries
}

// txView exposes the LedgerTx methods; it shares the Store's data and is only
// ever used while the store mutex is held.
type txView Store

func (v *txView) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	a, ok := v.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return a, nil
}

func (v *txView) PlatformAccount(ctx context.Context) (domain.Account, error) {
	for _, a := range v.accounts {
		if a.Kind == domain.AccountKindPlatform {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (v *txView) CreateAccount(ctx context.Context, a domain.Account) error {
	if _, ok := v.accounts[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if a.Email != "" {
		for _, existing := range v.accounts {
			if strings.EqualFold(existing.Email, a.Email) {
				return domain.ErrAlreadyExists
			}
		}
	}
	v.accounts[a.ID] = a
	return nil
}

func (v *txView) UpdateBalance(ctx context.Context, accountID string, delta int64) error {
	a, ok := v.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.Balance+delta < 0 {
		return domain.ErrInsufficientBalance
	}
	a.Balance += delta
	v.accounts[accountID] = a
	return nil
}

func (v *txView) SumEntries(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	for _, e := range v.entries {
		if e.UserID == accountID || e.OrganizationID == accountID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (v *txView) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	q, ok := v.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (v *txView) CreateQuestion(ctx context.Context, q domain.Question) error {
	if _, ok := v.questions[q.ID]; ok {
		return domain.ErrAlreadyExists
	}
	v.questions[q.ID] = q
	return nil
}

func (v *txView) UpdateQuestionStatus(ctx context.Context, id string, status domain.QuestionStatus, resolvedAt *time.Time) error {
	q, ok := v.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Status = status
	q.ResolvedAt = resolvedAt
	v.questions[id] = q
	return nil
}

func (v *txView) CreateStake(ctx context.Context, st domain.Stake) error {
	v.stakes = append(v.stakes, st)
	return nil
}

func (v *txView) StakesForQuestion(ctx context.Context, questionID string) ([]domain.Stake, error) {
	return stakesForQuestion(v.stakes, questionID), nil
}

func (v *txView) AppendEntry(ctx context.Context, e domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	v.entries = append(v.entries, e)
	return nil
}

// ---------------------------------------------------------------------------
// Non-transactional reads
// ---------------------------------------------------------------------------

func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*txView)(s).GetAccount(ctx, id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) && a.Email != "" {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*txView)(s).GetQuestion(ctx, id)
}

func (s *Store) ListQuestions(ctx context.Context, status domain.QuestionStatus, opts domain.ListOpts) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Question
	for _, q := range s.questions {
		if q.Status == status {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Question
	for _, q := range s.questions {
		if q.Status == domain.QuestionStatusActive && !q.Deadline.After(now) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (s *Store) StakesForQuestion(ctx context.Context, questionID string) ([]domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stakesForQuestion(s.stakes, questionID), nil
}

func (s *Store) StakesForUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Stake
	for _, st := range s.stakes {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) PoolTotals(ctx context.Context, questionID string) (domain.PoolTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := domain.PoolTotals{QuestionID: questionID}
	for _, st := range s.stakes {
		if st.QuestionID != questionID {
			continue
		}
		if st.Prediction == domain.PredictionYes {
			totals.Yes += st.Amount
		} else {
			totals.No += st.Amount
		}
	}
	return totals, nil
}

func (s *Store) EntriesForQuestion(ctx context.Context, questionID string) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range s.entries {
		if e.QuestionID == questionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) EntriesForAccount(ctx context.Context, accountID string, opts domain.ListOpts) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range s.entries {
		if e.UserID == accountID || e.OrganizationID == accountID {
			out = append(out, e)
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

// EntriesBefore returns all ledger entries created strictly before the
// cutoff. It mirrors the archiver hook of the PostgreSQL store.
func (s *Store) EntriesBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func stakesForQuestion(stakes []domain.Stake, questionID string) []domain.Stake {
	var out []domain.Stake
	for _, st := range stakes {
		if st.QuestionID == questionID {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Compile-time interface check.
var _ domain.LedgerStore = (*Store)(nil)
