package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pactas/pactas/internal/domain"
	"github.com/pactas/pactas/internal/notify"
)

// SettlementReporter archives a finished settlement outside the database,
// typically as a JSON object in blob storage.
type SettlementReporter interface {
	Archive(ctx context.Context, s domain.Settlement) error
}

// ResolutionService settles closed questions: it computes the fee split,
// credits every winner inside a single serializable transaction, and fans
// out notifications after the commit.
type ResolutionService struct {
	store      domain.LedgerStore
	split      domain.SplitParams
	logger     *slog.Logger
	dispatcher *notify.Dispatcher
	reporter   SettlementReporter
	pools      domain.PoolCache
	bus        domain.SignalBus
}

// NewResolutionService creates a ResolutionService with its required
// dependencies. Notification, reporting, and cache wiring are optional and
// attached via the With* methods.
func NewResolutionService(store domain.LedgerStore, split domain.SplitParams, logger *slog.Logger) *ResolutionService {
	return &ResolutionService{
		store:  store,
		split:  split,
		logger: logger,
	}
}

// WithDispatcher attaches a notification dispatcher for post-commit fan-out.
func (s *ResolutionService) WithDispatcher(d *notify.Dispatcher) *ResolutionService {
	s.dispatcher = d
	return s
}

// WithReporter attaches a settlement report archiver.
func (s *ResolutionService) WithReporter(r SettlementReporter) *ResolutionService {
	s.reporter = r
	return s
}

// WithPoolCache attaches the pool totals cache so resolved questions get
// their cached totals dropped.
func (s *ResolutionService) WithPoolCache(c domain.PoolCache) *ResolutionService {
	s.pools = c
	return s
}

// WithSignalBus attaches a bus for resolution events.
func (s *ResolutionService) WithSignalBus(b domain.SignalBus) *ResolutionService {
	s.bus = b
	return s
}

// Resolve settles a closed question for the given outcome. All balance
// movements and the status flip commit atomically; a question that is not in
// closed status is rejected, which makes resolution idempotent. The returned
// settlement describes every credit that was applied.
func (s *ResolutionService) Resolve(ctx context.Context, questionID string, outcome domain.Prediction) (domain.Settlement, error) {
	if !outcome.Valid() {
		return domain.Settlement{}, fmt.Errorf("resolution_service: resolve %q: %w", questionID, domain.ErrInvalidOutcome)
	}

	var (
		settlement domain.Settlement
		question   domain.Question
		orgName    string
		stakes     []domain.Stake
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return fmt.Errorf("get question: %w", err)
		}
		if q.Status != domain.QuestionStatusClosed {
			return fmt.Errorf("question %q in status %q: %w", q.ID, q.Status, domain.ErrQuestionNotClosed)
		}

		org, err := tx.GetAccount(ctx, q.OrganizationID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return fmt.Errorf("organization %q missing for question %q: %w", q.OrganizationID, q.ID, domain.ErrLedgerIntegrity)
			}
			return fmt.Errorf("get organization: %w", err)
		}

		stakes, err = tx.StakesForQuestion(ctx, q.ID)
		if err != nil {
			return fmt.Errorf("load stakes: %w", err)
		}

		now := time.Now().UTC()
		settlement = domain.ComputeSettlement(q.ID, q.OrganizationID, stakes, outcome, s.split)
		settlement.ResolvedAt = now

		if settlement.TotalPool > 0 {
			platform, err := tx.PlatformAccount(ctx)
			if err != nil {
				return fmt.Errorf("platform account: %w", err)
			}

			if err := s.applyCredits(ctx, tx, platform.ID, settlement, now); err != nil {
				return err
			}
		}

		if err := tx.UpdateQuestionStatus(ctx, q.ID, domain.ResolvedStatus(outcome), &now); err != nil {
			return fmt.Errorf("mark resolved: %w", err)
		}

		question = q
		orgName = org.Name
		return nil
	})
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("resolution_service: resolve %q: %w", questionID, err)
	}

	s.logger.InfoContext(ctx, "resolution_service: question resolved",
		slog.String("question_id", settlement.QuestionID),
		slog.String("outcome", string(settlement.Outcome)),
		slog.Int64("total_pool", settlement.TotalPool),
		slog.Int64("admin_fee", settlement.AdminFee),
		slog.Int64("organization_share", settlement.OrganizationShare),
		slog.Int("winners", len(settlement.Payouts)),
	)

	// Everything below is best-effort. The settlement is already durable;
	// side channels must never roll it back or surface an error.
	s.afterCommit(ctx, question, orgName, stakes, settlement)

	return settlement, nil
}

// applyCredits moves the settlement pools onto the platform, organization,
// and winner balances, writing one ledger entry per movement.
func (s *ResolutionService) applyCredits(ctx context.Context, tx domain.LedgerTx, platformID string, st domain.Settlement, now time.Time) error {
	if st.AdminFee > 0 {
		if err := tx.UpdateBalance(ctx, platformID, st.AdminFee); err != nil {
			return fmt.Errorf("credit admin fee: %w", err)
		}
		if err := tx.AppendEntry(ctx, domain.LedgerEntry{
			Amount:     st.AdminFee,
			Kind:       domain.EntryKindAdminFee,
			QuestionID: st.QuestionID,
			UserID:     platformID,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("record admin fee: %w", err)
		}
	}

	if st.OrganizationShare > 0 {
		if err := tx.UpdateBalance(ctx, st.OrganizationID, st.OrganizationShare); err != nil {
			return fmt.Errorf("credit organization: %w", err)
		}
		if err := tx.AppendEntry(ctx, domain.LedgerEntry{
			Amount:         st.OrganizationShare,
			Kind:           domain.EntryKindCommission,
			QuestionID:     st.QuestionID,
			OrganizationID: st.OrganizationID,
			CreatedAt:      now,
		}); err != nil {
			return fmt.Errorf("record commission: %w", err)
		}
	}

	for _, p := range st.Payouts {
		if p.Amount == 0 {
			// A stake small enough to floor to zero still won; there is
			// simply nothing to move.
			continue
		}
		if err := tx.UpdateBalance(ctx, p.UserID, p.Amount); err != nil {
			return fmt.Errorf("credit winner %q: %w", p.UserID, err)
		}
		if err := tx.AppendEntry(ctx, domain.LedgerEntry{
			Amount:     p.Amount,
			Kind:       domain.EntryKindWin,
			QuestionID: st.QuestionID,
			UserID:     p.UserID,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("record win for %q: %w", p.UserID, err)
		}
	}

	return nil
}

// afterCommit fans out notifications, archives the settlement report, and
// invalidates cached pool totals. Failures are logged and swallowed.
func (s *ResolutionService) afterCommit(ctx context.Context, q domain.Question, orgName string, stakes []domain.Stake, st domain.Settlement) {
	if s.dispatcher != nil {
		s.enqueueIntents(q, orgName, stakes, st)
	}

	if s.reporter != nil {
		if err := s.reporter.Archive(ctx, st); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: settlement archive failed",
				slog.String("question_id", st.QuestionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.pools != nil {
		if err := s.pools.Invalidate(ctx, st.QuestionID); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: pool cache invalidate failed",
				slog.String("question_id", st.QuestionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		payload := fmt.Sprintf(`{"event":"question_resolved","question_id":%q,"outcome":%q}`, st.QuestionID, st.Outcome)
		if err := s.bus.Publish(ctx, "questions", []byte(payload)); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: bus publish failed",
				slog.String("question_id", st.QuestionID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *ResolutionService) enqueueIntents(q domain.Question, orgName string, stakes []domain.Stake, st domain.Settlement) {
	payoutByStake := make(map[string]int64, len(st.Payouts))
	for _, p := range st.Payouts {
		payoutByStake[p.StakeID] = p.Amount
	}

	s.dispatcher.Enqueue(notify.Intent{
		Event:     notify.EventQuestionResolvedOrg,
		Recipient: st.OrganizationID,
		Title:     fmt.Sprintf("Question resolved: %s", q.Title),
		Payload: map[string]any{
			"organization_name":  orgName,
			"question_title":     q.Title,
			"resolution":         string(st.Outcome),
			"total_pool":         st.TotalPool,
			"organization_share": st.OrganizationShare,
			"total_bets":         len(stakes),
			"resolved_at":        st.ResolvedAt,
		},
	})

	for _, stake := range stakes {
		won := stake.Won(st.Outcome)
		s.dispatcher.Enqueue(notify.Intent{
			Event:     notify.EventBetResolvedUser,
			Recipient: stake.UserID,
			Title:     fmt.Sprintf("Your bet on %q was resolved", q.Title),
			Payload: map[string]any{
				"question_title": q.Title,
				"bet_amount":     stake.Amount,
				"prediction":     string(stake.Prediction),
				"actual_result":  string(st.Outcome),
				"has_won":        won,
				"win_amount":     payoutByStake[stake.ID],
			},
		})
	}
}
