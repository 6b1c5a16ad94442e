package domain

import (
	"context"
	"time"
)

// BatchStatus enumerates scraper batch states.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchCompleted BatchStatus = "completed"
	BatchPartial   BatchStatus = "partial"
	BatchFailed    BatchStatus = "failed"
)

// ScraperBatch tracks one outbound scraper job and the prompts it covers.
type ScraperBatch struct {
	BatchID     string
	UserID      UserID
	PromptIDs   []PromptID
	Status      BatchStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ParsedResult is one webhook item matched back to its prompt, with citations
// already filtered to those the provider marked as cited.
type ParsedResult struct {
	PromptID   PromptID   `json:"prompt_id"`
	AnswerText string     `json:"answer_text"`
	Citations  []Citation `json:"citations"`
	Model      string     `json:"model"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ScraperInput is the per-prompt payload sent to the external scraper.
type ScraperInput struct {
	URL              string `json:"url"`
	Prompt           string `json:"prompt"`
	Country          string `json:"country"`
	WebSearch        bool   `json:"web_search"`
	RequireSources   bool   `json:"require_sources"`
	AdditionalPrompt string `json:"additional_prompt,omitempty"`
}

// ScraperClient triggers external scraper batches. Failures map onto the
// upstream error taxonomy (auth, rate limit, timeout, unreachable).
type ScraperClient interface {
	Trigger(ctx context.Context, batchID string, inputs []ScraperInput) error
}

// BatchRepository persists scraper batches in the eval store; the in-memory
// registry twin holds the reverse prompt_text lookup.
type BatchRepository interface {
	Insert(ctx context.Context, b ScraperBatch) error
	Get(ctx context.Context, batchID string) (ScraperBatch, error)
	UpdateStatus(ctx context.Context, batchID string, status BatchStatus, completedAt *time.Time) error
}

// ResultSink publishes parsed scraper results for asynchronous submission
// through the evaluation lifecycle.
type ResultSink interface {
	Publish(ctx context.Context, batchID string, r ParsedResult) error
}
