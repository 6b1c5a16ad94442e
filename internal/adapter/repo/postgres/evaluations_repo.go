package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// EvaluationRepo persists prompt evaluations in the evals store.
type EvaluationRepo struct{ Pool PgxPool }

// NewEvaluationRepo constructs an EvaluationRepo.
func NewEvaluationRepo(p PgxPool) *EvaluationRepo { return &EvaluationRepo{Pool: p} }

const evalCols = `id, prompt_id, assistant_plan_id, status, created_at, claimed_at, completed_at, answer`

func scanEvaluation(row pgx.Row) (domain.Evaluation, error) {
	var e domain.Evaluation
	var answer []byte
	if err := row.Scan(&e.ID, &e.PromptID, &e.PlanID, &e.Status, &e.CreatedAt, &e.ClaimedAt, &e.CompletedAt, &answer); err != nil {
		return domain.Evaluation{}, err
	}
	if len(answer) > 0 {
		var a domain.Answer
		if err := json.Unmarshal(answer, &a); err != nil {
			return domain.Evaluation{}, fmt.Errorf("answer decode: %w", err)
		}
		e.Answer = &a
	}
	return e, nil
}

// Get loads an evaluation by id.
func (r *EvaluationRepo) Get(ctx context.Context, id domain.EvaluationID) (domain.Evaluation, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.Get")
	defer span.End()

	q := `SELECT ` + evalCols + ` FROM prompt_evaluations WHERE id = $1`
	e, err := scanEvaluation(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", domain.ErrNotFound)
		}
		return domain.Evaluation{}, fmt.Errorf("op=evaluation.get: %w", err)
	}
	return e, nil
}

// SubmitAnswer completes an in_progress evaluation and synchronises the owning
// queue entry in the same transaction. Submitting to a terminal evaluation is
// a conflict; submitting to a missing one is not-found.
func (r *EvaluationRepo) SubmitAnswer(ctx context.Context, id domain.EvaluationID, ans domain.Answer) error {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.SubmitAnswer")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=evaluation.submit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status domain.EvaluationStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM prompt_evaluations WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("op=evaluation.submit: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("op=evaluation.submit: %w", err)
	}
	if status != domain.EvalInProgress {
		return fmt.Errorf("op=evaluation.submit: evaluation already %s: %w", status, domain.ErrConflict)
	}

	body, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("op=evaluation.submit: %w", err)
	}
	now := time.Now().UTC()
	q := `UPDATE prompt_evaluations SET status = 'completed', completed_at = $2, answer = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, q, id, now, body); err != nil {
		return fmt.Errorf("op=evaluation.submit: %w", err)
	}
	sync := `UPDATE execution_queue SET status = 'completed', completed_at = $2
		WHERE evaluation_id = $1 AND status IN ('pending','in_progress')`
	if _, err := tx.Exec(ctx, sync, id, now); err != nil {
		return fmt.Errorf("op=evaluation.submit.sync: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=evaluation.submit: %w", err)
	}
	return nil
}

// Release abandons an in_progress claim. With markFailed the evaluation is
// kept and failed with the reason stored in answer.error; otherwise the row is
// deleted. The owning queue entry is marked failed either way.
func (r *EvaluationRepo) Release(ctx context.Context, id domain.EvaluationID, markFailed bool, reason string) error {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.Release")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=evaluation.release: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status domain.EvaluationStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM prompt_evaluations WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("op=evaluation.release: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("op=evaluation.release: %w", err)
	}
	if status == domain.EvalCompleted {
		return fmt.Errorf("op=evaluation.release: completed evaluation: %w", domain.ErrConflict)
	}

	now := time.Now().UTC()
	if markFailed {
		body, err := json.Marshal(domain.Answer{Error: reason, Timestamp: now})
		if err != nil {
			return fmt.Errorf("op=evaluation.release: %w", err)
		}
		q := `UPDATE prompt_evaluations SET status = 'failed', completed_at = $2, answer = $3 WHERE id = $1`
		if _, err := tx.Exec(ctx, q, id, now, body); err != nil {
			return fmt.Errorf("op=evaluation.release: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `DELETE FROM prompt_evaluations WHERE id = $1`, id); err != nil {
			return fmt.Errorf("op=evaluation.release: %w", err)
		}
	}

	sync := `UPDATE execution_queue SET status = 'failed', completed_at = $2, failure_reason = $3, evaluation_id = NULL
		WHERE evaluation_id = $1 AND status IN ('pending','in_progress')`
	if _, err := tx.Exec(ctx, sync, id, now, reason); err != nil {
		return fmt.Errorf("op=evaluation.release.sync: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=evaluation.release: %w", err)
	}
	return nil
}

// LatestCompleted returns the most recent completed evaluation per prompt for
// the given plan.
func (r *EvaluationRepo) LatestCompleted(ctx context.Context, planID domain.PlanID, promptIDs []domain.PromptID) (map[domain.PromptID]domain.Evaluation, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.LatestCompleted")
	defer span.End()

	ids := make([]int64, 0, len(promptIDs))
	for _, id := range promptIDs {
		ids = append(ids, int64(id))
	}
	q := `SELECT DISTINCT ON (prompt_id) ` + evalCols + ` FROM prompt_evaluations
		WHERE assistant_plan_id = $1 AND prompt_id = ANY($2) AND status = 'completed'
		ORDER BY prompt_id, completed_at DESC`
	rows, err := r.Pool.Query(ctx, q, planID, ids)
	if err != nil {
		return nil, fmt.Errorf("op=evaluation.latest_completed: %w", err)
	}
	defer rows.Close()
	out := make(map[domain.PromptID]domain.Evaluation, len(promptIDs))
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("op=evaluation.latest_completed: %w", err)
		}
		out[e.PromptID] = e
	}
	return out, rows.Err()
}

// ListCompletedByPrompt returns all completed evaluations for a prompt, newest
// first.
func (r *EvaluationRepo) ListCompletedByPrompt(ctx context.Context, promptID domain.PromptID) ([]domain.Evaluation, error) {
	q := `SELECT ` + evalCols + ` FROM prompt_evaluations
		WHERE prompt_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC`
	rows, err := r.Pool.Query(ctx, q, promptID)
	if err != nil {
		return nil, fmt.Errorf("op=evaluation.list_completed: %w", err)
	}
	defer rows.Close()
	var out []domain.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("op=evaluation.list_completed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HasInProgress reports whether any evaluation for the prompt is currently
// in_progress.
func (r *EvaluationRepo) HasInProgress(ctx context.Context, promptID domain.PromptID) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM prompt_evaluations WHERE prompt_id = $1 AND status = 'in_progress')`
	if err := r.Pool.QueryRow(ctx, q, promptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("op=evaluation.has_in_progress: %w", err)
	}
	return exists, nil
}

// FindPlan resolves an assistant plan by assistant and plan name.
func (r *EvaluationRepo) FindPlan(ctx context.Context, assistantName, planName string) (domain.AssistantPlan, error) {
	tracer := otel.Tracer("repo.evaluations")
	ctx, span := tracer.Start(ctx, "evaluations.FindPlan")
	defer span.End()

	q := `SELECT p.id, p.assistant_id, p.name FROM ai_assistant_plans p
		JOIN ai_assistants a ON a.id = p.assistant_id
		WHERE a.name = $1 AND p.name = $2`
	var plan domain.AssistantPlan
	if err := r.Pool.QueryRow(ctx, q, assistantName, planName).Scan(&plan.ID, &plan.AssistantID, &plan.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AssistantPlan{}, fmt.Errorf("op=evaluation.find_plan: %w", domain.ErrNotFound)
		}
		return domain.AssistantPlan{}, fmt.Errorf("op=evaluation.find_plan: %w", err)
	}
	return plan, nil
}
