package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
)

// QueueRepo persists execution queue entries in the evals store. Prompts live
// in a different store, so the claim sequence loads them through the prompt
// repository rather than a join.
type QueueRepo struct {
	Pool    PgxPool
	Prompts domain.PromptRepository
}

// NewQueueRepo constructs a QueueRepo.
func NewQueueRepo(p PgxPool, prompts domain.PromptRepository) *QueueRepo {
	return &QueueRepo{Pool: p, Prompts: prompts}
}

const queueCols = `id, prompt_id, requested_by, request_batch_id, requested_at, status, claimed_at, completed_at, evaluation_id`

func scanQueueEntry(row pgx.Row) (domain.QueueEntry, error) {
	var e domain.QueueEntry
	var evalID *int64
	if err := row.Scan(&e.ID, &e.PromptID, &e.RequestedBy, &e.RequestBatchID, &e.RequestedAt, &e.Status, &e.ClaimedAt, &e.CompletedAt, &evalID); err != nil {
		return domain.QueueEntry{}, err
	}
	if evalID != nil {
		id := domain.EvaluationID(*evalID)
		e.EvaluationID = &id
	}
	return e, nil
}

// InsertPending inserts a pending entry unless the prompt already has a
// pending or in_progress one. The partial unique index makes the check-then-
// insert race-free; a conflicting concurrent insert simply returns no row.
func (r *QueueRepo) InsertPending(ctx context.Context, promptID domain.PromptID, requestedBy domain.UserID, batchID string) (domain.QueueEntry, bool, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.InsertPending")
	defer span.End()
	span.SetAttributes(attribute.Int64("prompt.id", int64(promptID)))

	q := `INSERT INTO execution_queue (prompt_id, requested_by, request_batch_id, requested_at, status)
		SELECT $1, $2, $3, now(), 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM execution_queue WHERE prompt_id = $1 AND status IN ('pending','in_progress')
		)
		ON CONFLICT (prompt_id) WHERE status IN ('pending','in_progress') DO NOTHING
		RETURNING ` + queueCols
	entry, err := scanQueueEntry(r.Pool.QueryRow(ctx, q, promptID, requestedBy, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QueueEntry{}, false, nil
		}
		return domain.QueueEntry{}, false, fmt.Errorf("op=queue.insert_pending: %w", err)
	}
	return entry, true, nil
}

// CancelPending cancels the caller's own pending entries; in_progress rows are
// untouched.
func (r *QueueRepo) CancelPending(ctx context.Context, promptIDs []domain.PromptID, requestedBy domain.UserID) (int, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.CancelPending")
	defer span.End()

	ids := make([]int64, 0, len(promptIDs))
	for _, id := range promptIDs {
		ids = append(ids, int64(id))
	}
	q := `UPDATE execution_queue SET status = 'cancelled'
		WHERE requested_by = $1 AND status = 'pending' AND prompt_id = ANY($2)`
	tag, err := r.Pool.Exec(ctx, q, requestedBy, ids)
	if err != nil {
		return 0, fmt.Errorf("op=queue.cancel_pending: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ClaimNext runs the atomic claim protocol: reap stale claims, lock the oldest
// pending row skipping locked ones, load the prompt, transition to
// in_progress, and open the evaluation, all in one transaction.
func (r *QueueRepo) ClaimNext(ctx context.Context, planID domain.PlanID, staleAfter time.Duration) (*domain.Claim, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.ClaimNext")
	defer span.End()

	lock := `SELECT ` + queueCols + ` FROM execution_queue
		WHERE status = 'pending'
		ORDER BY requested_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`
	return r.claim(ctx, planID, staleAfter, lock)
}

// ClaimForPrompt claims the pending entry for a specific prompt, used by the
// result-ingest worker to attach a scraped answer to its request.
func (r *QueueRepo) ClaimForPrompt(ctx context.Context, promptID domain.PromptID, planID domain.PlanID, staleAfter time.Duration) (*domain.Claim, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.ClaimForPrompt")
	defer span.End()
	span.SetAttributes(attribute.Int64("prompt.id", int64(promptID)))

	lock := `SELECT ` + queueCols + ` FROM execution_queue
		WHERE status = 'pending' AND prompt_id = $1
		FOR UPDATE SKIP LOCKED
		LIMIT 1`
	return r.claim(ctx, planID, staleAfter, lock, int64(promptID))
}

func (r *QueueRepo) claim(ctx context.Context, planID domain.PlanID, staleAfter time.Duration, lock string, lockArgs ...any) (*domain.Claim, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("op=queue.claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Inline stale-claim reaper: orphaned evaluations are failed, the entry
	// goes back to pending.
	cutoff := time.Now().UTC().Add(-staleAfter)
	reap := `WITH stale AS (
			SELECT id, evaluation_id FROM execution_queue
			WHERE status = 'in_progress' AND claimed_at < $1
			FOR UPDATE SKIP LOCKED
		), failed_evals AS (
			UPDATE prompt_evaluations SET status = 'failed', completed_at = now()
			WHERE id IN (SELECT evaluation_id FROM stale WHERE evaluation_id IS NOT NULL)
			  AND status = 'in_progress'
		)
		UPDATE execution_queue q SET status = 'pending', claimed_at = NULL, evaluation_id = NULL
		FROM stale s WHERE q.id = s.id`
	tag, err := tx.Exec(ctx, reap, cutoff)
	if err != nil {
		return nil, fmt.Errorf("op=queue.claim.reap: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		observability.QueueStaleReclaimedTotal.Add(float64(n))
	}

	entry, err := scanQueueEntry(tx.QueryRow(ctx, lock, lockArgs...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if cerr := tx.Commit(ctx); cerr != nil {
				return nil, fmt.Errorf("op=queue.claim: %w", cerr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("op=queue.claim.lock: %w", err)
	}

	prompt, err := r.Prompts.Get(ctx, entry.PromptID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Corrupt cross-store reference: fail the entry and report empty.
			q := `UPDATE execution_queue SET status = 'failed', completed_at = now(), failure_reason = 'prompt missing' WHERE id = $1`
			if _, uerr := tx.Exec(ctx, q, entry.ID); uerr != nil {
				return nil, fmt.Errorf("op=queue.claim.fail_missing: %w", uerr)
			}
			if cerr := tx.Commit(ctx); cerr != nil {
				return nil, fmt.Errorf("op=queue.claim: %w", cerr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("op=queue.claim.prompt: %w", err)
	}

	now := time.Now().UTC()
	var evalID int64
	insEval := `INSERT INTO prompt_evaluations (prompt_id, assistant_plan_id, status, created_at, claimed_at)
		VALUES ($1, $2, 'in_progress', $3, $3) RETURNING id`
	if err := tx.QueryRow(ctx, insEval, entry.PromptID, planID, now).Scan(&evalID); err != nil {
		return nil, fmt.Errorf("op=queue.claim.open_eval: %w", err)
	}

	claim := `UPDATE execution_queue SET status = 'in_progress', claimed_at = $2, evaluation_id = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, claim, entry.ID, now, evalID); err != nil {
		return nil, fmt.Errorf("op=queue.claim.transition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("op=queue.claim: %w", err)
	}

	eid := domain.EvaluationID(evalID)
	entry.Status = domain.QueueInProgress
	entry.ClaimedAt = &now
	entry.EvaluationID = &eid
	return &domain.Claim{
		Entry:  entry,
		Prompt: prompt,
		Evaluation: domain.Evaluation{
			ID:        eid,
			PromptID:  entry.PromptID,
			PlanID:    planID,
			Status:    domain.EvalInProgress,
			CreatedAt: now,
			ClaimedAt: &now,
		},
	}, nil
}

// PendingCount returns the number of pending entries.
func (r *QueueRepo) PendingCount(ctx context.Context) (int, error) {
	var n int
	q := `SELECT count(*) FROM execution_queue WHERE status = 'pending'`
	if err := r.Pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=queue.pending_count: %w", err)
	}
	observability.QueuePendingDepth.Set(float64(n))
	return n, nil
}

// EntriesForUser returns the user's pending/in_progress entries plus terminal
// ones newer than since.
func (r *QueueRepo) EntriesForUser(ctx context.Context, userID domain.UserID, since time.Time) ([]domain.QueueEntry, error) {
	tracer := otel.Tracer("repo.queue")
	ctx, span := tracer.Start(ctx, "queue.EntriesForUser")
	defer span.End()

	q := `SELECT ` + queueCols + ` FROM execution_queue
		WHERE requested_by = $1 AND (status IN ('pending','in_progress') OR completed_at >= $2)
		ORDER BY requested_at ASC`
	rows, err := r.Pool.Query(ctx, q, userID, since)
	if err != nil {
		return nil, fmt.Errorf("op=queue.entries_for_user: %w", err)
	}
	defer rows.Close()
	var out []domain.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("op=queue.entries_for_user: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
