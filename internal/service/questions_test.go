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

func validQuestionInput() CreateQuestionInput {
	return CreateQuestionInput{
		Title:       "Will the metro line open this year?",
		Description: "Resolved against the official operator announcement.",
		Source:      "https://transport.example.com",
		Deadline:    time.Now().Add(48 * time.Hour),
		Tags:        []string{"POLITIQUE", "SOCIAL"},
	}
}

func TestCreateQuestion(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)

	svc := NewQuestionService(store, testLogger())
	q, err := svc.Create(context.Background(), "org", validQuestionInput())
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, domain.QuestionStatusActive, q.Status)
	assert.Equal(t, "org", q.OrganizationID)
	assert.Nil(t, q.ResolvedAt)

	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Title, got.Title)
}

func TestCreateQuestionValidation(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 0)

	svc := NewQuestionService(store, testLogger())

	cases := map[string]func(*CreateQuestionInput){
		"empty title":       func(in *CreateQuestionInput) { in.Title = "  " },
		"empty description": func(in *CreateQuestionInput) { in.Description = "" },
		"blank source":      func(in *CreateQuestionInput) { in.Source = "   " },
		"past deadline":     func(in *CreateQuestionInput) { in.Deadline = time.Now().Add(-time.Hour) },
		"zero deadline":     func(in *CreateQuestionInput) { in.Deadline = time.Time{} },
		"no tags":           func(in *CreateQuestionInput) { in.Tags = nil },
		"unknown tag":       func(in *CreateQuestionInput) { in.Tags = []string{"WEATHER"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validQuestionInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), "org", in)
			require.ErrorIs(t, err, domain.ErrInvalidQuestion)
		})
	}

	// Only organization accounts may host questions.
	_, err := svc.Create(context.Background(), "alice", validQuestionInput())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCloseQuestion(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	q := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	svc := NewQuestionService(store, testLogger())
	require.NoError(t, svc.Close(context.Background(), q.ID))

	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusClosed, got.Status)

	// A second close is rejected, as is closing a resolved question.
	require.ErrorIs(t, svc.Close(context.Background(), q.ID), domain.ErrQuestionNotOpen)
}

func TestCloseExpired(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)

	expired1 := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(-2*time.Hour))
	expired2 := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(-time.Minute))
	open := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	svc := NewQuestionService(store, testLogger())
	closed, err := svc.CloseExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	for _, id := range []string{expired1.ID, expired2.ID} {
		q, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.QuestionStatusClosed, q.Status)
	}

	stillOpen, err := svc.Get(context.Background(), open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusActive, stillOpen.Status)

	// A second sweep finds nothing left to close.
	closed, err = svc.CloseExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestPoolTotalsFallsBackToStore(t *testing.T) {
	store := memstore.New()
	seedAccount(t, store, domain.AccountKindOrganization, "org", 0)
	seedAccount(t, store, domain.AccountKindUser, "alice", 300)
	q := seedQuestion(t, store, "org", domain.QuestionStatusActive, time.Now().Add(time.Hour))

	staking := NewStakingService(store, testLogger())
	_, err := staking.PlaceStake(context.Background(), "alice", q.ID, 100, domain.PredictionYes)
	require.NoError(t, err)
	_, err = staking.PlaceStake(context.Background(), "alice", q.ID, 50, domain.PredictionNo)
	require.NoError(t, err)

	// No cache wired: totals come straight from the store.
	svc := NewQuestionService(store, testLogger())
	totals, err := svc.PoolTotals(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), totals.Yes)
	assert.Equal(t, int64(50), totals.No)
	assert.Equal(t, int64(150), totals.Total())
}
