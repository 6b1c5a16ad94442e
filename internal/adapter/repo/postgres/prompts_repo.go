package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// PromptRepo persists prompts, groups and bindings in the prompt store.
type PromptRepo struct{ Pool PgxPool }

// NewPromptRepo constructs a PromptRepo.
func NewPromptRepo(p PgxPool) *PromptRepo { return &PromptRepo{Pool: p} }

// Get loads a prompt by id.
func (r *PromptRepo) Get(ctx context.Context, id domain.PromptID) (domain.Prompt, error) {
	tracer := otel.Tracer("repo.prompts")
	ctx, span := tracer.Start(ctx, "prompts.Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("prompt.id", int64(id)))

	q := `SELECT id, text, embedding, topic_id, user_id FROM prompts WHERE id = $1`
	var p domain.Prompt
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Text, &p.Embedding, &p.TopicID, &p.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Prompt{}, fmt.Errorf("op=prompts.get: %w", domain.ErrNotFound)
		}
		return domain.Prompt{}, fmt.Errorf("op=prompts.get: %w", err)
	}
	return p, nil
}

// GetByIDs loads a set of prompts; absent ids are simply missing from the map.
func (r *PromptRepo) GetByIDs(ctx context.Context, ids []domain.PromptID) (map[domain.PromptID]domain.Prompt, error) {
	tracer := otel.Tracer("repo.prompts")
	ctx, span := tracer.Start(ctx, "prompts.GetByIDs")
	defer span.End()

	raw := make([]int64, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, int64(id))
	}
	q := `SELECT id, text, embedding, topic_id, user_id FROM prompts WHERE id = ANY($1)`
	rows, err := r.Pool.Query(ctx, q, raw)
	if err != nil {
		return nil, fmt.Errorf("op=prompts.get_by_ids: %w", err)
	}
	defer rows.Close()
	out := make(map[domain.PromptID]domain.Prompt, len(ids))
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.ID, &p.Text, &p.Embedding, &p.TopicID, &p.UserID); err != nil {
			return nil, fmt.Errorf("op=prompts.get_by_ids: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Insert stores a new prompt with its embedding.
func (r *PromptRepo) Insert(ctx context.Context, text string, embedding []float32, topicID *int64, userID *domain.UserID) (domain.PromptID, error) {
	tracer := otel.Tracer("repo.prompts")
	ctx, span := tracer.Start(ctx, "prompts.Insert")
	defer span.End()

	if len(embedding) != domain.EmbeddingDim {
		return 0, fmt.Errorf("op=prompts.insert: embedding dim %d: %w", len(embedding), domain.ErrInvalidArgument)
	}
	q := `INSERT INTO prompts (text, embedding, topic_id, user_id) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int64
	if err := r.Pool.QueryRow(ctx, q, text, embedding, topicID, userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("op=prompts.insert: %w", err)
	}
	return domain.PromptID(id), nil
}

// GetGroup loads a group with its brand metadata.
func (r *PromptRepo) GetGroup(ctx context.Context, id domain.GroupID) (domain.PromptGroup, error) {
	tracer := otel.Tracer("repo.prompts")
	ctx, span := tracer.Start(ctx, "prompts.GetGroup")
	defer span.End()

	q := `SELECT id, user_id, title, topic_id, brand, competitors, created_at, updated_at
		FROM prompt_groups WHERE id = $1`
	var g domain.PromptGroup
	var brand, competitors []byte
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&g.ID, &g.UserID, &g.Title, &g.TopicID, &brand, &competitors, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PromptGroup{}, fmt.Errorf("op=prompts.get_group: %w", domain.ErrNotFound)
		}
		return domain.PromptGroup{}, fmt.Errorf("op=prompts.get_group: %w", err)
	}
	if err := json.Unmarshal(brand, &g.Brand); err != nil {
		return domain.PromptGroup{}, fmt.Errorf("op=prompts.get_group: brand decode: %w", err)
	}
	if err := json.Unmarshal(competitors, &g.Competitors); err != nil {
		return domain.PromptGroup{}, fmt.Errorf("op=prompts.get_group: competitors decode: %w", err)
	}
	return g, nil
}

// GroupPromptIDs returns the prompt ids bound to a group in binding order.
func (r *PromptRepo) GroupPromptIDs(ctx context.Context, id domain.GroupID) ([]domain.PromptID, error) {
	q := `SELECT prompt_id FROM prompt_group_bindings WHERE group_id = $1 ORDER BY added_at ASC, prompt_id ASC`
	rows, err := r.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("op=prompts.group_prompt_ids: %w", err)
	}
	defer rows.Close()
	var out []domain.PromptID
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("op=prompts.group_prompt_ids: %w", err)
		}
		out = append(out, domain.PromptID(pid))
	}
	return out, rows.Err()
}

// BindToGroup attaches a prompt to a group; re-binding is a no-op.
func (r *PromptRepo) BindToGroup(ctx context.Context, groupID domain.GroupID, promptID domain.PromptID) error {
	q := `INSERT INTO prompt_group_bindings (group_id, prompt_id) VALUES ($1, $2)
		ON CONFLICT (group_id, prompt_id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, groupID, promptID); err != nil {
		return fmt.Errorf("op=prompts.bind_to_group: %w", err)
	}
	return nil
}
