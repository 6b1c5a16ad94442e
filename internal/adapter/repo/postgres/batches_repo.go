package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// BatchRepo persists scraper batches in the evals store.
type BatchRepo struct{ Pool PgxPool }

// NewBatchRepo constructs a BatchRepo.
func NewBatchRepo(p PgxPool) *BatchRepo { return &BatchRepo{Pool: p} }

// Insert stores a new batch.
func (r *BatchRepo) Insert(ctx context.Context, b domain.ScraperBatch) error {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.Insert")
	defer span.End()

	ids := make([]int64, 0, len(b.PromptIDs))
	for _, id := range b.PromptIDs {
		ids = append(ids, int64(id))
	}
	q := `INSERT INTO brightdata_batches (batch_id, user_id, prompt_ids, status) VALUES ($1, $2, $3, $4)`
	if _, err := r.Pool.Exec(ctx, q, b.BatchID, b.UserID, ids, b.Status); err != nil {
		return fmt.Errorf("op=batches.insert: %w", err)
	}
	return nil
}

// Get loads a batch by id.
func (r *BatchRepo) Get(ctx context.Context, batchID string) (domain.ScraperBatch, error) {
	q := `SELECT batch_id, user_id, prompt_ids, status, created_at, completed_at
		FROM brightdata_batches WHERE batch_id = $1`
	var b domain.ScraperBatch
	var ids []int64
	if err := r.Pool.QueryRow(ctx, q, batchID).Scan(&b.BatchID, &b.UserID, &ids, &b.Status, &b.CreatedAt, &b.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScraperBatch{}, fmt.Errorf("op=batches.get: %w", domain.ErrNotFound)
		}
		return domain.ScraperBatch{}, fmt.Errorf("op=batches.get: %w", err)
	}
	for _, id := range ids {
		b.PromptIDs = append(b.PromptIDs, domain.PromptID(id))
	}
	return b, nil
}

// UpdateStatus transitions a batch; pending is the only non-terminal state.
func (r *BatchRepo) UpdateStatus(ctx context.Context, batchID string, status domain.BatchStatus, completedAt *time.Time) error {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.UpdateStatus")
	defer span.End()

	q := `UPDATE brightdata_batches SET status = $2, completed_at = $3 WHERE batch_id = $1`
	tag, err := r.Pool.Exec(ctx, q, batchID, status, completedAt)
	if err != nil {
		return fmt.Errorf("op=batches.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=batches.update_status: %w", domain.ErrNotFound)
	}
	return nil
}
