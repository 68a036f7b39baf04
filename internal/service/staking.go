package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pactas/pactas/internal/domain"
)

// StakingService places stakes against open questions and answers stake
// history queries.
type StakingService struct {
	store  domain.LedgerStore
	logger *slog.Logger
	pools  domain.PoolCache
	bus    domain.SignalBus
}

// NewStakingService creates a StakingService. Cache and bus wiring are
// optional and attached via the With* methods.
func NewStakingService(store domain.LedgerStore, logger *slog.Logger) *StakingService {
	return &StakingService{
		store:  store,
		logger: logger,
	}
}

// WithPoolCache attaches the pool totals cache so placed stakes bump the
// cached running totals.
func (s *StakingService) WithPoolCache(c domain.PoolCache) *StakingService {
	s.pools = c
	return s
}

// WithSignalBus attaches a bus for stake events.
func (s *StakingService) WithSignalBus(b domain.SignalBus) *StakingService {
	s.bus = b
	return s
}

// PlaceStake debits the user and records a stake against an open question.
// The debit, the stake row, and its ledger entry commit atomically; an
// expired or non-active question rejects the stake before any money moves.
func (s *StakingService) PlaceStake(ctx context.Context, userID, questionID string, amount int64, prediction domain.Prediction) (domain.Stake, error) {
	if amount <= 0 {
		return domain.Stake{}, fmt.Errorf("staking_service: place stake: %w", domain.ErrInvalidAmount)
	}
	if !prediction.Valid() {
		return domain.Stake{}, fmt.Errorf("staking_service: place stake: %w", domain.ErrInvalidPrediction)
	}

	var stake domain.Stake
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return fmt.Errorf("get question: %w", err)
		}

		now := time.Now().UTC()
		if !q.OpenForStaking(now) {
			return fmt.Errorf("question %q in status %q: %w", q.ID, q.Status, domain.ErrQuestionNotOpen)
		}

		user, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user.Kind != domain.AccountKindUser {
			return fmt.Errorf("account %q is %q, not a user: %w", user.ID, user.Kind, domain.ErrAccountNotFound)
		}

		if err := tx.UpdateBalance(ctx, user.ID, -amount); err != nil {
			return fmt.Errorf("debit user: %w", err)
		}

		stake = domain.Stake{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			QuestionID: q.ID,
			Amount:     amount,
			Prediction: prediction,
			CreatedAt:  now,
		}
		if err := tx.CreateStake(ctx, stake); err != nil {
			return fmt.Errorf("create stake: %w", err)
		}

		if err := tx.AppendEntry(ctx, domain.LedgerEntry{
			Amount:     -amount,
			Kind:       domain.EntryKindStake,
			QuestionID: q.ID,
			UserID:     user.ID,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("record stake entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Stake{}, fmt.Errorf("staking_service: place stake on %q: %w", questionID, err)
	}

	s.logger.InfoContext(ctx, "staking_service: stake placed",
		slog.String("stake_id", stake.ID),
		slog.String("question_id", stake.QuestionID),
		slog.String("user_id", stake.UserID),
		slog.Int64("amount", stake.Amount),
		slog.String("prediction", string(stake.Prediction)),
	)

	if s.pools != nil {
		if err := s.pools.Add(ctx, stake.QuestionID, stake.Prediction, stake.Amount); err != nil {
			s.logger.WarnContext(ctx, "staking_service: pool cache add failed",
				slog.String("question_id", stake.QuestionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		payload := fmt.Sprintf(`{"event":"stake_placed","question_id":%q,"prediction":%q,"amount":%d}`,
			stake.QuestionID, stake.Prediction, stake.Amount)
		if err := s.bus.Publish(ctx, "stakes", []byte(payload)); err != nil {
			s.logger.WarnContext(ctx, "staking_service: bus publish failed",
				slog.String("question_id", stake.QuestionID),
				slog.String("error", err.Error()),
			)
		}
	}

	return stake, nil
}

// UserStats summarizes a user's stake history.
type UserStats struct {
	TotalStakes   int
	TotalStaked   int64
	Won           int
	Lost          int
	Pending       int
	TotalWinnings int64
}

// StatsFor walks a user's stakes and tallies outcomes against each
// question's resolution. Stakes on unresolved questions count as pending.
func (s *StakingService) StatsFor(ctx context.Context, userID string) (UserStats, error) {
	stakes, err := s.store.StakesForUser(ctx, userID, domain.ListOpts{})
	if err != nil {
		return UserStats{}, fmt.Errorf("staking_service: stats for %q: %w", userID, err)
	}

	var stats UserStats
	questions := make(map[string]domain.Question)

	for _, st := range stakes {
		stats.TotalStakes++
		stats.TotalStaked += st.Amount

		q, ok := questions[st.QuestionID]
		if !ok {
			q, err = s.store.GetQuestion(ctx, st.QuestionID)
			if err != nil {
				return UserStats{}, fmt.Errorf("staking_service: stats for %q: question %q: %w", userID, st.QuestionID, err)
			}
			questions[st.QuestionID] = q
		}

		if !q.Status.Resolved() {
			stats.Pending++
			continue
		}

		outcome := domain.PredictionYes
		if q.Status == domain.QuestionStatusResolvedNo {
			outcome = domain.PredictionNo
		}
		if st.Won(outcome) {
			stats.Won++
		} else {
			stats.Lost++
		}
	}

	if stats.Won > 0 {
		entries, err := s.store.EntriesForAccount(ctx, userID, domain.ListOpts{})
		if err != nil {
			return UserStats{}, fmt.Errorf("staking_service: stats for %q: entries: %w", userID, err)
		}
		for _, e := range entries {
			if e.Kind == domain.EntryKindWin {
				stats.TotalWinnings += e.Amount
			}
		}
	}

	return stats, nil
}
