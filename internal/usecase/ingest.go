package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// IngestService embeds prompt texts, deduplicates them against the existing
// corpus by cosine similarity, and schedules evaluation for each resulting
// prompt.
type IngestService struct {
	Embed     domain.EmbeddingService
	Index     domain.NearestNeighborIndex
	Prompts   domain.PromptRepository
	Queue     domain.QueueRepository
	Threshold float32
}

// NewIngestService constructs an IngestService.
func NewIngestService(e domain.EmbeddingService, i domain.NearestNeighborIndex, p domain.PromptRepository, q domain.QueueRepository, threshold float32) IngestService {
	return IngestService{Embed: e, Index: i, Prompts: p, Queue: q, Threshold: threshold}
}

// IngestResult reports the outcome of one ingest batch. RequestID correlates
// the batch in logs and queue entries.
type IngestResult struct {
	CreatedCount int               `json:"created_count"`
	ReusedCount  int               `json:"reused_count"`
	PromptIDs    []domain.PromptID `json:"prompt_ids"`
	RequestID    string            `json:"request_id"`
}

// Ingest embeds all texts in one batch, reuses near-duplicate prompts, inserts
// the rest, ensures a single pending queue entry per prompt, and optionally
// binds everything to a group.
func (s IngestService) Ingest(ctx context.Context, texts []string, topicID *int64, groupID *domain.GroupID, userID domain.UserID) (IngestResult, error) {
	if len(texts) == 0 {
		return IngestResult{}, fmt.Errorf("%w: texts required", domain.ErrInvalidArgument)
	}
	requestID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()

	vectors, err := s.Embed.Encode(ctx, texts)
	if err != nil {
		return IngestResult{}, fmt.Errorf("op=ingest.embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return IngestResult{}, fmt.Errorf("op=ingest.embed: got %d vectors for %d texts: %w", len(vectors), len(texts), domain.ErrInternal)
	}

	res := IngestResult{RequestID: requestID}
	uid := userID
	for i, text := range texts {
		vec := vectors[i]

		var promptID domain.PromptID
		matches, err := s.Index.FindNearest(ctx, vec, 1)
		if err != nil {
			return IngestResult{}, fmt.Errorf("op=ingest.nn: %w", err)
		}
		if len(matches) > 0 && matches[0].Score >= s.Threshold {
			promptID = matches[0].PromptID
			res.ReusedCount++
		} else {
			promptID, err = s.Prompts.Insert(ctx, text, vec, topicID, &uid)
			if err != nil {
				return IngestResult{}, err
			}
			if err := s.Index.Upsert(ctx, promptID, vec, text); err != nil {
				return IngestResult{}, fmt.Errorf("op=ingest.index: %w", err)
			}
			res.CreatedCount++
		}
		res.PromptIDs = append(res.PromptIDs, promptID)

		if _, _, err := s.Queue.InsertPending(ctx, promptID, userID, requestID); err != nil {
			return IngestResult{}, err
		}
		if groupID != nil {
			if err := s.Prompts.BindToGroup(ctx, *groupID, promptID); err != nil {
				return IngestResult{}, err
			}
		}
	}

	obsctx.LoggerFromContext(ctx).Info("ingest",
		"request_id", requestID, "created", res.CreatedCount, "reused", res.ReusedCount)
	return res, nil
}
