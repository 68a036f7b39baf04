package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pactas/pactas/internal/domain"
)

// maxTxAttempts bounds the retry loop for serialization conflicts. Business
// errors are never retried.
const maxTxAttempts = 3

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// helpers serve transactional and plain reads.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerStore implements domain.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// InTx runs fn inside a SERIALIZABLE transaction. Serialization conflicts
// (SQLSTATE 40001/40P01) are retried up to maxTxAttempts with a short
// backoff; any other error rolls back and is returned to the caller.
func (s *LedgerStore) InTx(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("postgres: tx retries exhausted: %w", err)
}

func (s *LedgerStore) runTx(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txView{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// txView implements domain.LedgerTx over a single pgx transaction. Question
// reads lock the row FOR UPDATE so a stake placement and a resolution on the
// same question cannot interleave.
type txView struct {
	q pgx.Tx
}

func (v *txView) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return getAccount(ctx, v.q, `SELECT `+accountCols+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (v *txView) PlatformAccount(ctx context.Context) (domain.Account, error) {
	return getAccount(ctx, v.q, `SELECT `+accountCols+` FROM accounts WHERE kind = 'platform' FOR UPDATE`)
}

func (v *txView) CreateAccount(ctx context.Context, a domain.Account) error {
	return createAccount(ctx, v.q, a)
}

func (v *txView) UpdateBalance(ctx context.Context, accountID string, delta int64) error {
	tag, err := v.q.Exec(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE id = $1 AND balance + $2 >= 0`,
		accountID, delta)
	if err != nil {
		return fmt.Errorf("postgres: update balance %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := v.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check account %s: %w", accountID, err)
		}
		if !exists {
			return domain.ErrAccountNotFound
		}
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (v *txView) SumEntries(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := v.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		 WHERE user_id = $1 OR organization_id = $1`, accountID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum entries %s: %w", accountID, err)
	}
	return sum, nil
}

func (v *txView) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return getQuestion(ctx, v.q, `SELECT `+questionCols+` FROM questions WHERE id = $1 FOR UPDATE`, id)
}

func (v *txView) CreateQuestion(ctx context.Context, q domain.Question) error {
	return createQuestion(ctx, v.q, q)
}

func (v *txView) UpdateQuestionStatus(ctx context.Context, id string, status domain.QuestionStatus, resolvedAt *time.Time) error {
	tag, err := v.q.Exec(ctx,
		`UPDATE questions SET status = $2, resolved_at = $3 WHERE id = $1`,
		id, string(status), resolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: update question status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (v *txView) CreateStake(ctx context.Context, st domain.Stake) error {
	_, err := v.q.Exec(ctx,
		`INSERT INTO stakes (id, user_id, question_id, amount, prediction, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		st.ID, st.UserID, st.QuestionID, st.Amount, string(st.Prediction), st.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create stake %s: %w", st.ID, err)
	}
	return nil
}

func (v *txView) StakesForQuestion(ctx context.Context, questionID string) ([]domain.Stake, error) {
	return stakesForQuestion(ctx, v.q, questionID)
}

func (v *txView) AppendEntry(ctx context.Context, e domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := v.q.Exec(ctx,
		`INSERT INTO ledger_entries (id, amount, kind, question_id, user_id, organization_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Amount, string(e.Kind),
		nullable(e.QuestionID), nullable(e.UserID), nullable(e.OrganizationID),
		e.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: append ledger entry %s: %w", e.ID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Non-transactional reads
// ---------------------------------------------------------------------------

func (s *LedgerStore) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return getAccount(ctx, s.pool, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
}

func (s *LedgerStore) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return getAccount(ctx, s.pool, `SELECT `+accountCols+` FROM accounts WHERE email = $1`, email)
}

func (s *LedgerStore) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return getQuestion(ctx, s.pool, `SELECT `+questionCols+` FROM questions WHERE id = $1`, id)
}

func (s *LedgerStore) ListQuestions(ctx context.Context, status domain.QuestionStatus, opts domain.ListOpts) ([]domain.Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions WHERE status = $1`
	args := []any{string(status)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list questions: %w", err)
	}
	defer rows.Close()

	return scanQuestionRows(rows)
}

func (s *LedgerStore) ListExpired(ctx context.Context, now time.Time) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE status = 'active' AND deadline <= $1
		 ORDER BY deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired questions: %w", err)
	}
	defer rows.Close()

	return scanQuestionRows(rows)
}

func (s *LedgerStore) StakesForQuestion(ctx context.Context, questionID string) ([]domain.Stake, error) {
	return stakesForQuestion(ctx, s.pool, questionID)
}

func (s *LedgerStore) StakesForUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Stake, error) {
	query := `SELECT ` + stakeCols + ` FROM stakes WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanStakeRows(rows)
}

func (s *LedgerStore) PoolTotals(ctx context.Context, questionID string) (domain.PoolTotals, error) {
	totals := domain.PoolTotals{QuestionID: questionID}
	err := s.pool.QueryRow(ctx,
		`SELECT
			COALESCE(SUM(amount) FILTER (WHERE prediction = 'yes'), 0),
			COALESCE(SUM(amount) FILTER (WHERE prediction = 'no'), 0)
		 FROM stakes WHERE question_id = $1`, questionID,
	).Scan(&totals.Yes, &totals.No)
	if err != nil {
		return domain.PoolTotals{}, fmt.Errorf("postgres: pool totals %s: %w", questionID, err)
	}
	return totals, nil
}

func (s *LedgerStore) EntriesForQuestion(ctx context.Context, questionID string) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols+` FROM ledger_entries
		 WHERE question_id = $1 ORDER BY created_at, id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: entries for question %s: %w", questionID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

func (s *LedgerStore) EntriesForAccount(ctx context.Context, accountID string, opts domain.ListOpts) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryCols + ` FROM ledger_entries
		WHERE (user_id = $1 OR organization_id = $1)`
	args := []any{accountID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: entries for account %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// EntriesBefore returns all ledger entries created strictly before the
// cutoff, oldest first. It feeds the blob archiver and is not part of the
// domain store interface.
func (s *LedgerStore) EntriesBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols+` FROM ledger_entries
		 WHERE created_at < $1 ORDER BY created_at, id`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: entries before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// ---------------------------------------------------------------------------
// Shared query helpers
// ---------------------------------------------------------------------------

const accountCols = `id, kind, name, email, password_hash, balance, created_at`

func getAccount(ctx context.Context, q querier, query string, args ...any) (domain.Account, error) {
	var a domain.Account
	var kind string
	err := q.QueryRow(ctx, query, args...).Scan(
		&a.ID, &kind, &a.Name, &a.Email, &a.PasswordHash, &a.Balance, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account: %w", err)
	}
	a.Kind = domain.AccountKind(kind)
	return a, nil
}

func createAccount(ctx context.Context, q querier, a domain.Account) error {
	_, err := q.Exec(ctx,
		`INSERT INTO accounts (id, kind, name, email, password_hash, balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, string(a.Kind), a.Name, a.Email, a.PasswordHash, a.Balance, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create account %s: %w", a.ID, err)
	}
	return nil
}

const questionCols = `id, organization_id, title, description, source, tags, deadline, status, resolved_at, created_at`

func getQuestion(ctx context.Context, q querier, query string, args ...any) (domain.Question, error) {
	row := q.QueryRow(ctx, query, args...)
	qu, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("postgres: get question: %w", err)
	}
	return qu, nil
}

func createQuestion(ctx context.Context, q querier, qu domain.Question) error {
	_, err := q.Exec(ctx,
		`INSERT INTO questions (id, organization_id, title, description, source, tags, deadline, status, resolved_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		qu.ID, qu.OrganizationID, qu.Title, qu.Description, qu.Source, qu.Tags,
		qu.Deadline, string(qu.Status), qu.ResolvedAt, qu.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create question %s: %w", qu.ID, err)
	}
	return nil
}

func scanQuestion(scanner interface{ Scan(dest ...any) error }) (domain.Question, error) {
	var qu domain.Question
	var status string
	err := scanner.Scan(
		&qu.ID, &qu.OrganizationID, &qu.Title, &qu.Description, &qu.Source,
		&qu.Tags, &qu.Deadline, &status, &qu.ResolvedAt, &qu.CreatedAt,
	)
	if err != nil {
		return domain.Question{}, err
	}
	qu.Status = domain.QuestionStatus(status)
	return qu, nil
}

func scanQuestionRows(rows pgx.Rows) ([]domain.Question, error) {
	var questions []domain.Question
	for rows.Next() {
		qu, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan question: %w", err)
		}
		questions = append(questions, qu)
	}
	return questions, rows.Err()
}

const stakeCols = `id, user_id, question_id, amount, prediction, created_at`

func stakesForQuestion(ctx context.Context, q querier, questionID string) ([]domain.Stake, error) {
	rows, err := q.Query(ctx,
		`SELECT `+stakeCols+` FROM stakes
		 WHERE question_id = $1 ORDER BY created_at, id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: stakes for question %s: %w", questionID, err)
	}
	defer rows.Close()

	return scanStakeRows(rows)
}

func scanStakeRows(rows pgx.Rows) ([]domain.Stake, error) {
	var stakes []domain.Stake
	for rows.Next() {
		var st domain.Stake
		var prediction string
		if err := rows.Scan(&st.ID, &st.UserID, &st.QuestionID, &st.Amount, &prediction, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan stake: %w", err)
		}
		st.Prediction = domain.Prediction(prediction)
		stakes = append(stakes, st)
	}
	return stakes, rows.Err()
}

const entryCols = `id, amount, kind, question_id, user_id, organization_id, created_at`

func scanEntryRows(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		var questionID, userID, orgID *string
		if err := rows.Scan(&e.ID, &e.Amount, &kind, &questionID, &userID, &orgID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan ledger entry: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		e.QuestionID = deref(questionID)
		e.UserID = deref(userID)
		e.OrganizationID = deref(orgID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nullable maps the empty string to SQL NULL for optional UUID columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
