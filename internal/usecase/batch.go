package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// batchRecord holds one registered batch: the forward prompt map and the
// reverse text lookup used to dispatch webhook items in O(1).
type batchRecord struct {
	userID    domain.UserID
	forward   map[domain.PromptID]string
	reverse   map[string]domain.PromptID
	createdAt time.Time
}

// BatchRegistry is the in-memory twin of the persisted batches: it keeps the
// prompt_text reverse map a webhook needs, which never hits the database.
// All mutation happens under one lock; expired entries are reaped on every
// mutating operation.
type BatchRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	batches map[string]*batchRecord
	now     func() time.Time
}

// NewBatchRegistry constructs a registry with the given entry TTL.
func NewBatchRegistry(ttl time.Duration) *BatchRegistry {
	return &BatchRegistry{ttl: ttl, batches: make(map[string]*batchRecord), now: time.Now}
}

// reapLocked drops expired entries. Callers hold the lock.
func (r *BatchRegistry) reapLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, rec := range r.batches {
		if rec.createdAt.Before(cutoff) {
			delete(r.batches, id)
		}
	}
}

// Register stores the forward map and builds the reverse lookup.
func (r *BatchRegistry) Register(batchID string, userID domain.UserID, prompts map[domain.PromptID]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked()

	rec := &batchRecord{
		userID:    userID,
		forward:   make(map[domain.PromptID]string, len(prompts)),
		reverse:   make(map[string]domain.PromptID, len(prompts)),
		createdAt: r.now(),
	}
	for id, text := range prompts {
		rec.forward[id] = text
		rec.reverse[text] = id
	}
	r.batches[batchID] = rec
}

// Lookup resolves a prompt text to its id within a batch.
func (r *BatchRegistry) Lookup(batchID, promptText string) (domain.PromptID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.batches[batchID]
	if !ok {
		return 0, false
	}
	id, ok := rec.reverse[promptText]
	return id, ok
}

// Remove drops a batch once its webhook has been processed.
func (r *BatchRegistry) Remove(batchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked()
	delete(r.batches, batchID)
}

// Size reports the number of live batches.
func (r *BatchRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// WebhookCitation is one citation as delivered by the scraper; only entries
// the provider marked cited make it into the stored answer.
type WebhookCitation struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Domain string `json:"domain,omitempty"`
	Text   string `json:"text,omitempty"`
	Cited  bool   `json:"cited"`
}

// WebhookItem is one element of the scraper's callback payload.
type WebhookItem struct {
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
	AnswerText string            `json:"answer_text"`
	Citations  []WebhookCitation `json:"citations"`
	Model      string            `json:"model"`
	Timestamp  time.Time         `json:"timestamp"`
}

// WebhookOutcome summarises one webhook intake.
type WebhookOutcome struct {
	Processed int                `json:"processed"`
	Failed    int                `json:"failed"`
	Status    domain.BatchStatus `json:"status"`
}

// BatchService triggers external scraper batches and correlates their
// asynchronous webhooks back to prompt ids.
type BatchService struct {
	Registry *BatchRegistry
	Batches  domain.BatchRepository
	Scraper  domain.ScraperClient
	Sink     domain.ResultSink
	Country  string
}

// NewBatchService constructs a BatchService.
func NewBatchService(reg *BatchRegistry, b domain.BatchRepository, sc domain.ScraperClient, sink domain.ResultSink, country string) BatchService {
	return BatchService{Registry: reg, Batches: b, Scraper: sc, Sink: sink, Country: country}
}

// Register creates a new batch: persists the row, registers the reverse map,
// and triggers the scraper. A trigger failure marks the batch failed.
func (s BatchService) Register(ctx context.Context, userID domain.UserID, prompts map[domain.PromptID]string) (string, error) {
	if len(prompts) == 0 {
		return "", fmt.Errorf("%w: prompts required", domain.ErrInvalidArgument)
	}
	batchID := uuid.NewString()

	ids := make([]domain.PromptID, 0, len(prompts))
	inputs := make([]domain.ScraperInput, 0, len(prompts))
	for id, text := range prompts {
		ids = append(ids, id)
		inputs = append(inputs, domain.ScraperInput{
			URL:            "https://chatgpt.com",
			Prompt:         text,
			Country:        s.Country,
			WebSearch:      true,
			RequireSources: true,
		})
	}

	if err := s.Batches.Insert(ctx, domain.ScraperBatch{
		BatchID:   batchID,
		UserID:    userID,
		PromptIDs: ids,
		Status:    domain.BatchPending,
	}); err != nil {
		return "", err
	}
	s.Registry.Register(batchID, userID, prompts)

	if err := s.Scraper.Trigger(ctx, batchID, inputs); err != nil {
		now := time.Now().UTC()
		_ = s.Batches.UpdateStatus(ctx, batchID, domain.BatchFailed, &now)
		s.Registry.Remove(batchID)
		return "", fmt.Errorf("op=batch.trigger: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("batch registered", "batch_id", batchID, "prompts", len(prompts))
	return batchID, nil
}

// ProcessWebhook matches each item back to its prompt by text, filters
// citations to cited-only, and publishes a ParsedResult per match. Unmatched
// items are recorded as failures but never fail the batch. The final status is
// completed only when every prompt in the batch came back clean.
func (s BatchService) ProcessWebhook(ctx context.Context, batchID string, items []WebhookItem) (WebhookOutcome, error) {
	batch, err := s.Batches.Get(ctx, batchID)
	if err != nil {
		return WebhookOutcome{}, err
	}

	log := obsctx.LoggerFromContext(ctx)
	matched := make(map[domain.PromptID]struct{})
	var out WebhookOutcome
	for _, item := range items {
		promptID, ok := s.Registry.Lookup(batchID, item.Input.Prompt)
		if !ok {
			out.Failed++
			observability.WebhookItemsTotal.WithLabelValues("unmatched").Inc()
			log.Warn("webhook item unmatched", "batch_id", batchID)
			continue
		}

		var citations []domain.Citation
		for _, c := range item.Citations {
			if !c.Cited {
				continue
			}
			citations = append(citations, domain.Citation{URL: c.URL, Title: c.Title, Domain: c.Domain, Text: c.Text})
		}

		result := domain.ParsedResult{
			PromptID:   promptID,
			AnswerText: item.AnswerText,
			Citations:  citations,
			Model:      item.Model,
			Timestamp:  item.Timestamp,
		}
		if err := s.Sink.Publish(ctx, batchID, result); err != nil {
			out.Failed++
			observability.WebhookItemsTotal.WithLabelValues("publish_error").Inc()
			log.Error("webhook publish failed", "batch_id", batchID, "prompt_id", promptID, "error", err)
			continue
		}
		matched[promptID] = struct{}{}
		out.Processed++
		observability.WebhookItemsTotal.WithLabelValues("processed").Inc()
	}

	out.Status = domain.BatchCompleted
	if out.Failed > 0 || len(matched) < len(batch.PromptIDs) {
		out.Status = domain.BatchPartial
	}
	now := time.Now().UTC()
	if err := s.Batches.UpdateStatus(ctx, batchID, out.Status, &now); err != nil {
		return WebhookOutcome{}, err
	}
	s.Registry.Remove(batchID)
	return out, nil
}
