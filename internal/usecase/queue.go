// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// QueueService orchestrates enqueueing, polling and the evaluation lifecycle.
type QueueService struct {
	Queue      domain.QueueRepository
	Evals      domain.EvaluationRepository
	StaleAfter time.Duration
}

// NewQueueService constructs a QueueService.
func NewQueueService(q domain.QueueRepository, e domain.EvaluationRepository, staleAfter time.Duration) QueueService {
	return QueueService{Queue: q, Evals: e, StaleAfter: staleAfter}
}

// EnqueueItem reports the per-prompt outcome of a request-fresh call.
type EnqueueItem struct {
	PromptID domain.PromptID `json:"prompt_id"`
	Status   string          `json:"status"`
}

// Enqueue inserts pending entries for each prompt that has no active entry.
// Skipping an already-active prompt is not an error.
func (s QueueService) Enqueue(ctx context.Context, promptIDs []domain.PromptID, userID domain.UserID) (domain.EnqueueResult, string, error) {
	if len(promptIDs) == 0 {
		return domain.EnqueueResult{}, "", fmt.Errorf("%w: prompt_ids required", domain.ErrInvalidArgument)
	}
	batchID := uuid.NewString()
	var res domain.EnqueueResult
	for _, pid := range promptIDs {
		entry, queued, err := s.Queue.InsertPending(ctx, pid, userID, batchID)
		if err != nil {
			return domain.EnqueueResult{}, "", err
		}
		if queued {
			res.Queued = append(res.Queued, entry)
		} else {
			res.Skipped = append(res.Skipped, pid)
		}
	}
	pending, err := s.Queue.PendingCount(ctx)
	if err != nil {
		return domain.EnqueueResult{}, "", err
	}
	res.PendingCount = pending
	obsctx.LoggerFromContext(ctx).Info("enqueue",
		"queued", len(res.Queued), "skipped", len(res.Skipped), "pending", pending)
	return res, batchID, nil
}

// CancelPending cancels the user's own pending entries for the given prompts.
func (s QueueService) CancelPending(ctx context.Context, promptIDs []domain.PromptID, userID domain.UserID) (int, error) {
	if len(promptIDs) == 0 {
		return 0, fmt.Errorf("%w: prompt_ids required", domain.ErrInvalidArgument)
	}
	return s.Queue.CancelPending(ctx, promptIDs, userID)
}

// PollNext claims the oldest pending entry for the named plan. A nil claim
// means the queue is empty. An unknown plan is a validation error.
func (s QueueService) PollNext(ctx context.Context, assistantName, planName string) (*domain.Claim, error) {
	plan, err := s.Evals.FindPlan(ctx, assistantName, planName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown plan %s/%s", domain.ErrInvalidArgument, assistantName, planName)
		}
		return nil, err
	}
	claim, err := s.Queue.ClaimNext(ctx, plan.ID, s.StaleAfter)
	if err != nil {
		observability.QueuePollsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if claim == nil {
		observability.QueuePollsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}
	observability.QueuePollsTotal.WithLabelValues("claimed").Inc()
	obsctx.LoggerFromContext(ctx).Info("claim",
		"entry_id", claim.Entry.ID, "prompt_id", claim.Prompt.ID, "evaluation_id", claim.Evaluation.ID)
	return claim, nil
}

// Submit delivers an answer for an in_progress evaluation. The owning queue
// entry is synchronised inside the same transaction.
func (s QueueService) Submit(ctx context.Context, evalID domain.EvaluationID, ans domain.Answer) error {
	if ans.Timestamp.IsZero() {
		ans.Timestamp = time.Now().UTC()
	}
	if err := s.Evals.SubmitAnswer(ctx, evalID, ans); err != nil {
		observability.EvaluationsTotal.WithLabelValues("submit_rejected").Inc()
		return err
	}
	observability.EvaluationsTotal.WithLabelValues("completed").Inc()
	return nil
}

// SubmitScraped claims the prompt's pending entry for the named plan and
// submits the scraped answer through the same lifecycle as a human worker.
// Returns false when the prompt has no pending entry; the result is dropped.
func (s QueueService) SubmitScraped(ctx context.Context, assistantName, planName string, r domain.ParsedResult) (bool, error) {
	plan, err := s.Evals.FindPlan(ctx, assistantName, planName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("%w: unknown plan %s/%s", domain.ErrInvalidArgument, assistantName, planName)
		}
		return false, err
	}
	claim, err := s.Queue.ClaimForPrompt(ctx, r.PromptID, plan.ID, s.StaleAfter)
	if err != nil {
		return false, err
	}
	if claim == nil {
		obsctx.LoggerFromContext(ctx).Info("scraped result dropped, no pending entry", "prompt_id", r.PromptID)
		return false, nil
	}
	ans := domain.Answer{
		Response:  r.AnswerText,
		Citations: r.Citations,
		Timestamp: r.Timestamp,
	}
	if err := s.Submit(ctx, claim.Evaluation.ID, ans); err != nil {
		return false, err
	}
	return true, nil
}

// Release abandons a claim, either failing the evaluation or deleting it.
func (s QueueService) Release(ctx context.Context, evalID domain.EvaluationID, markFailed bool, reason string) error {
	if err := s.Evals.Release(ctx, evalID, markFailed, reason); err != nil {
		return err
	}
	observability.EvaluationsTotal.WithLabelValues("released").Inc()
	return nil
}

// LatestResults returns the most recent completed evaluation per prompt for
// the named plan.
func (s QueueService) LatestResults(ctx context.Context, assistantName, planName string, promptIDs []domain.PromptID) (map[domain.PromptID]domain.Evaluation, error) {
	plan, err := s.Evals.FindPlan(ctx, assistantName, planName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown plan %s/%s", domain.ErrInvalidArgument, assistantName, planName)
		}
		return nil, err
	}
	return s.Evals.LatestCompleted(ctx, plan.ID, promptIDs)
}

// QueueStatus is the user-facing view of their queue interactions over the
// last day plus the global depth used for wait estimation.
type QueueStatus struct {
	Entries      []domain.QueueEntry
	PendingCount int
}

// Status returns the user's pending/in_progress entries plus terminal ones
// from the last 24 hours.
func (s QueueService) Status(ctx context.Context, userID domain.UserID) (QueueStatus, error) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	entries, err := s.Queue.EntriesForUser(ctx, userID, since)
	if err != nil {
		return QueueStatus{}, err
	}
	pending, err := s.Queue.PendingCount(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	return QueueStatus{Entries: entries, PendingCount: pending}, nil
}
