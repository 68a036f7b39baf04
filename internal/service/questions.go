package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pactas/pactas/internal/domain"
)

// CreateQuestionInput carries the organization-supplied fields for a new
// question.
type CreateQuestionInput struct {
	Title       string
	Description string
	Source      string
	Deadline    time.Time
	Tags        []string
}

// QuestionService manages the question lifecycle up to resolution: creation,
// closing, and pool total reads.
type QuestionService struct {
	store  domain.LedgerStore
	logger *slog.Logger
	pools  domain.PoolCache
	bus    domain.SignalBus
}

// NewQuestionService creates a QuestionService. Cache and bus wiring are
// optional and attached via the With* methods.
func NewQuestionService(store domain.LedgerStore, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		store:  store,
		logger: logger,
	}
}

// WithPoolCache attaches the pool totals cache.
func (s *QuestionService) WithPoolCache(c domain.PoolCache) *QuestionService {
	s.pools = c
	return s
}

// WithSignalBus attaches a bus for question lifecycle events.
func (s *QuestionService) WithSignalBus(b domain.SignalBus) *QuestionService {
	s.bus = b
	return s
}

// Create validates and persists a new active question owned by the given
// organization.
func (s *QuestionService) Create(ctx context.Context, organizationID string, in CreateQuestionInput) (domain.Question, error) {
	if err := validateQuestionInput(in); err != nil {
		return domain.Question{}, fmt.Errorf("question_service: create: %w", err)
	}

	var question domain.Question
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		org, err := tx.GetAccount(ctx, organizationID)
		if err != nil {
			return fmt.Errorf("get organization: %w", err)
		}
		if org.Kind != domain.AccountKindOrganization {
			return fmt.Errorf("account %q is %q, not an organization: %w", org.ID, org.Kind, domain.ErrAccountNotFound)
		}

		question = domain.Question{
			ID:             uuid.NewString(),
			OrganizationID: org.ID,
			Title:          strings.TrimSpace(in.Title),
			Description:    strings.TrimSpace(in.Description),
			Source:         strings.TrimSpace(in.Source),
			Status:         domain.QuestionStatusActive,
			Deadline:       in.Deadline.UTC(),
			Tags:           in.Tags,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.CreateQuestion(ctx, question); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Question{}, fmt.Errorf("question_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "question_service: question created",
		slog.String("question_id", question.ID),
		slog.String("organization_id", question.OrganizationID),
		slog.Time("deadline", question.Deadline),
	)

	s.publishEvent(ctx, "question_created", question.ID)
	return question, nil
}

// Close flips an active question to closed, stopping further stakes. Closing
// an already closed or resolved question returns ErrQuestionNotOpen.
func (s *QuestionService) Close(ctx context.Context, questionID string) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return fmt.Errorf("get question: %w", err)
		}
		if q.Status != domain.QuestionStatusActive {
			return fmt.Errorf("question %q in status %q: %w", q.ID, q.Status, domain.ErrQuestionNotOpen)
		}
		return tx.UpdateQuestionStatus(ctx, q.ID, domain.QuestionStatusClosed, nil)
	})
	if err != nil {
		return fmt.Errorf("question_service: close %q: %w", questionID, err)
	}

	s.logger.InfoContext(ctx, "question_service: question closed",
		slog.String("question_id", questionID),
	)

	s.publishEvent(ctx, "question_closed", questionID)
	return nil
}

// CloseExpired closes every active question whose deadline has passed and
// returns the number closed. Questions that race to another status in the
// meantime are skipped.
func (s *QuestionService) CloseExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("question_service: close expired: %w", err)
	}

	closed := 0
	for _, q := range expired {
		if err := s.Close(ctx, q.ID); err != nil {
			if errors.Is(err, domain.ErrQuestionNotOpen) || errors.Is(err, domain.ErrQuestionNotFound) {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// Get returns a question by ID.
func (s *QuestionService) Get(ctx context.Context, questionID string) (domain.Question, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question_service: get %q: %w", questionID, err)
	}
	return q, nil
}

// List returns questions filtered by status.
func (s *QuestionService) List(ctx context.Context, status domain.QuestionStatus, opts domain.ListOpts) ([]domain.Question, error) {
	qs, err := s.store.ListQuestions(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("question_service: list: %w", err)
	}
	return qs, nil
}

// PoolTotals returns the yes/no stake totals for a question, serving from
// the cache when warm and back-filling it on a miss.
func (s *QuestionService) PoolTotals(ctx context.Context, questionID string) (domain.PoolTotals, error) {
	if s.pools != nil {
		totals, err := s.pools.Get(ctx, questionID)
		if err == nil {
			return totals, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "question_service: pool cache get failed",
				slog.String("question_id", questionID),
				slog.String("error", err.Error()),
			)
		}
	}

	totals, err := s.store.PoolTotals(ctx, questionID)
	if err != nil {
		return domain.PoolTotals{}, fmt.Errorf("question_service: pool totals %q: %w", questionID, err)
	}

	if s.pools != nil {
		if cacheErr := s.pools.Set(ctx, totals); cacheErr != nil {
			s.logger.WarnContext(ctx, "question_service: pool cache set failed",
				slog.String("question_id", questionID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return totals, nil
}

func (s *QuestionService) publishEvent(ctx context.Context, event, questionID string) {
	if s.bus == nil {
		return
	}
	payload := fmt.Sprintf(`{"event":%q,"question_id":%q}`, event, questionID)
	if err := s.bus.Publish(ctx, "questions", []byte(payload)); err != nil {
		s.logger.WarnContext(ctx, "question_service: bus publish failed",
			slog.String("question_id", questionID),
			slog.String("error", err.Error()),
		)
	}
}

func validateQuestionInput(in CreateQuestionInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required: %w", domain.ErrInvalidQuestion)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("description is required: %w", domain.ErrInvalidQuestion)
	}
	if strings.TrimSpace(in.Source) == "" {
		return fmt.Errorf("source is required: %w", domain.ErrInvalidQuestion)
	}
	if in.Deadline.IsZero() || !in.Deadline.After(time.Now()) {
		return fmt.Errorf("deadline must be in the future: %w", domain.ErrInvalidQuestion)
	}
	if len(in.Tags) == 0 {
		return fmt.Errorf("at least one tag is required: %w", domain.ErrInvalidQuestion)
	}
	for _, tag := range in.Tags {
		if !domain.ValidTags[tag] {
			return fmt.Errorf("unknown tag %q: %w", tag, domain.ErrInvalidQuestion)
		}
	}
	return nil
}
