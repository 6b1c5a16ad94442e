package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/domain"
	"github.com/rosklyar/prompts-volume/internal/domain/mocks"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

func TestEnqueue_SkipsActivePrompts(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	queue.On("InsertPending", mock.Anything, domain.PromptID(10), user, mock.Anything).
		Return(domain.QueueEntry{ID: 1, PromptID: 10, Status: domain.QueuePending}, true, nil)
	queue.On("InsertPending", mock.Anything, domain.PromptID(11), user, mock.Anything).
		Return(domain.QueueEntry{}, false, nil)
	queue.On("PendingCount", mock.Anything).Return(5, nil)

	res, batchID, err := svc.Enqueue(context.Background(), []domain.PromptID{10, 11}, user)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)
	assert.Len(t, res.Queued, 1)
	assert.Equal(t, []domain.PromptID{11}, res.Skipped)
	assert.Equal(t, 5, res.PendingCount)
}

func TestEnqueue_EmptyInputRejected(t *testing.T) {
	t.Parallel()
	svc := usecase.NewQueueService(mocks.NewMockQueueRepository(t), mocks.NewMockEvaluationRepository(t), 2*time.Hour)

	_, _, err := svc.Enqueue(context.Background(), nil, user)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPollNext_UnknownPlanIsValidationError(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	evals.On("FindPlan", mock.Anything, "ChatGPT", "ULTRA").
		Return(domain.AssistantPlan{}, domain.ErrNotFound)

	_, err := svc.PollNext(context.Background(), "ChatGPT", "ULTRA")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPollNext_EmptyQueueReturnsNil(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	evals.On("FindPlan", mock.Anything, "ChatGPT", "PLUS").
		Return(domain.AssistantPlan{ID: 3, Name: "PLUS"}, nil)
	queue.On("ClaimNext", mock.Anything, domain.PlanID(3), 2*time.Hour).Return(nil, nil)

	claim, err := svc.PollNext(context.Background(), "ChatGPT", "PLUS")
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestPollNext_ReturnsClaim(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	evals.On("FindPlan", mock.Anything, "ChatGPT", "PLUS").
		Return(domain.AssistantPlan{ID: 3, Name: "PLUS"}, nil)
	want := &domain.Claim{
		Entry:      domain.QueueEntry{ID: 9, PromptID: 42, Status: domain.QueueInProgress},
		Prompt:     domain.Prompt{ID: 42, Text: "How to X?"},
		Evaluation: domain.Evaluation{ID: 1, PromptID: 42, PlanID: 3, Status: domain.EvalInProgress},
	}
	queue.On("ClaimNext", mock.Anything, domain.PlanID(3), 2*time.Hour).Return(want, nil)

	claim, err := svc.PollNext(context.Background(), "ChatGPT", "PLUS")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, domain.PromptID(42), claim.Prompt.ID)
	assert.Equal(t, domain.EvaluationID(1), claim.Evaluation.ID)
}

func TestSubmit_FillsTimestampAndPropagatesConflict(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	evals.On("SubmitAnswer", mock.Anything, domain.EvaluationID(1), mock.MatchedBy(func(a domain.Answer) bool {
		return a.Response == "x" && !a.Timestamp.IsZero()
	})).Return(nil).Once()
	require.NoError(t, svc.Submit(context.Background(), 1, domain.Answer{Response: "x"}))

	evals.On("SubmitAnswer", mock.Anything, domain.EvaluationID(1), mock.Anything).
		Return(domain.ErrConflict).Once()
	err := svc.Submit(context.Background(), 1, domain.Answer{Response: "x", Timestamp: time.Now()})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestStatus_Last24Hours(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	queue.On("EntriesForUser", mock.Anything, user, mock.MatchedBy(func(since time.Time) bool {
		return time.Since(since) > 23*time.Hour && time.Since(since) < 25*time.Hour
	})).Return([]domain.QueueEntry{{ID: 1, Status: domain.QueuePending}}, nil)
	queue.On("PendingCount", mock.Anything).Return(3, nil)

	st, err := svc.Status(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, st.Entries, 1)
	assert.Equal(t, 3, st.PendingCount)
}

func TestSubmitScraped_ClaimsAndSubmits(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	plan := domain.AssistantPlan{ID: 3, AssistantID: 1, Name: "free"}
	evals.On("FindPlan", mock.Anything, "chatgpt", "free").Return(plan, nil)
	queue.On("ClaimForPrompt", mock.Anything, domain.PromptID(7), domain.PlanID(3), 2*time.Hour).
		Return(&domain.Claim{
			Entry:      domain.QueueEntry{ID: 12, PromptID: 7},
			Evaluation: domain.Evaluation{ID: 40, PromptID: 7, PlanID: 3, Status: domain.EvalInProgress},
		}, nil)
	evals.On("SubmitAnswer", mock.Anything, domain.EvaluationID(40), mock.MatchedBy(func(a domain.Answer) bool {
		return a.Response == "scraped answer" && !a.Timestamp.IsZero()
	})).Return(nil)

	submitted, err := svc.SubmitScraped(context.Background(), "chatgpt", "free", domain.ParsedResult{
		PromptID:   7,
		AnswerText: "scraped answer",
	})
	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestSubmitScraped_NoPendingEntryDropsResult(t *testing.T) {
	t.Parallel()
	queue := mocks.NewMockQueueRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	svc := usecase.NewQueueService(queue, evals, 2*time.Hour)

	evals.On("FindPlan", mock.Anything, "chatgpt", "free").
		Return(domain.AssistantPlan{ID: 3}, nil)
	queue.On("ClaimForPrompt", mock.Anything, domain.PromptID(7), domain.PlanID(3), 2*time.Hour).
		Return(nil, nil)

	submitted, err := svc.SubmitScraped(context.Background(), "chatgpt", "free", domain.ParsedResult{PromptID: 7})
	require.NoError(t, err)
	assert.False(t, submitted)
}
