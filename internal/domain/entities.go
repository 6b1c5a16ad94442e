package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateConsumption = errors.New("duplicate consumption")
	ErrUpstreamAuth         = errors.New("upstream auth")
	ErrUpstreamRateLimit    = errors.New("upstream rate limit")
	ErrUpstreamTimeout      = errors.New("upstream timeout")
	ErrUpstreamUnreachable  = errors.New("upstream unreachable")
	ErrInternal             = errors.New("internal error")
)

//go:generate mockery --name=QueueRepository --with-expecter --filename=queue_repository_mock.go
//go:generate mockery --name=EvaluationRepository --with-expecter --filename=evaluation_repository_mock.go
//go:generate mockery --name=PromptRepository --with-expecter --filename=prompt_repository_mock.go
//go:generate mockery --name=BillingRepository --with-expecter --filename=billing_repository_mock.go
//go:generate mockery --name=ReportRepository --with-expecter --filename=report_repository_mock.go
//go:generate mockery --name=EmbeddingService --with-expecter --filename=embedding_service_mock.go

// EmbeddingDim is the fixed width of prompt embedding vectors.
const EmbeddingDim = 384

// Prompt is a stored user-facing question plus its semantic embedding.
type Prompt struct {
	ID        PromptID
	Text      string
	Embedding []float32
	TopicID   *int64
	UserID    *UserID
}

// QueueStatus enumerates execution queue entry states.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueInProgress QueueStatus = "in_progress"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
	QueueCancelled  QueueStatus = "cancelled"
)

// QueueEntry is a scheduling intent linking a prompt, a requester, and
// ultimately one evaluation. At most one entry per prompt may be pending or
// in_progress at any time; the partial unique index enforces this.
type QueueEntry struct {
	ID             QueueEntryID
	PromptID       PromptID
	RequestedBy    UserID
	RequestBatchID string
	RequestedAt    time.Time
	Status         QueueStatus
	ClaimedAt      *time.Time
	CompletedAt    *time.Time
	EvaluationID   *EvaluationID
}

// EvaluationStatus enumerates evaluation states.
type EvaluationStatus string

const (
	EvalInProgress EvaluationStatus = "in_progress"
	EvalCompleted  EvaluationStatus = "completed"
	EvalFailed     EvaluationStatus = "failed"
)

// Citation is one cited source inside an answer.
type Citation struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Domain string `json:"domain,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Answer carries the assistant's response and its citations.
// Error is set only when a claim was released as failed.
type Answer struct {
	Response  string     `json:"response"`
	Citations []Citation `json:"citations"`
	Timestamp time.Time  `json:"timestamp"`
	Error     string     `json:"error,omitempty"`
}

// Evaluation is one attempt by one assistant plan to answer one prompt.
// Multiple evaluations per (prompt, plan) are allowed; retries create new rows.
type Evaluation struct {
	ID          EvaluationID
	PromptID    PromptID
	PlanID      PlanID
	Status      EvaluationStatus
	CreatedAt   time.Time
	ClaimedAt   *time.Time
	CompletedAt *time.Time
	Answer      *Answer
}

// AIAssistant and AssistantPlan are eval-store reference data.
type AIAssistant struct {
	ID   int64
	Name string
}

type AssistantPlan struct {
	ID          PlanID
	AssistantID int64
	Name        string
}

// Claim is what a successful poll returns: the claimed queue entry, the prompt
// it references, and the freshly created in_progress evaluation.
type Claim struct {
	Entry      QueueEntry
	Prompt     Prompt
	Evaluation Evaluation
}

// EnqueueResult reports the outcome of a batch enqueue.
type EnqueueResult struct {
	Queued       []QueueEntry
	Skipped      []PromptID
	PendingCount int
}

// QueueRepository persists execution queue entries. The claim protocol and the
// inline stale reaper run inside a single database transaction.
type QueueRepository interface {
	InsertPending(ctx context.Context, promptID PromptID, requestedBy UserID, batchID string) (QueueEntry, bool, error)
	CancelPending(ctx context.Context, promptIDs []PromptID, requestedBy UserID) (int, error)
	ClaimNext(ctx context.Context, planID PlanID, staleAfter time.Duration) (*Claim, error)
	// ClaimForPrompt claims the pending entry for one specific prompt; nil when
	// the prompt has no pending entry. Used by the result-ingest worker.
	ClaimForPrompt(ctx context.Context, promptID PromptID, planID PlanID, staleAfter time.Duration) (*Claim, error)
	PendingCount(ctx context.Context) (int, error)
	EntriesForUser(ctx context.Context, userID UserID, since time.Time) ([]QueueEntry, error)
}

// EvaluationRepository persists prompt evaluations.
type EvaluationRepository interface {
	Get(ctx context.Context, id EvaluationID) (Evaluation, error)
	// SubmitAnswer transitions the evaluation to completed and synchronises the
	// owning queue entry in the same transaction. Submitting twice is ErrConflict.
	SubmitAnswer(ctx context.Context, id EvaluationID, ans Answer) error
	// Release abandons an in_progress claim. With markFailed the evaluation is
	// kept and marked failed; otherwise it is deleted. Either way the owning
	// queue entry is marked failed. Releasing a completed evaluation is ErrConflict.
	Release(ctx context.Context, id EvaluationID, markFailed bool, reason string) error
	LatestCompleted(ctx context.Context, planID PlanID, promptIDs []PromptID) (map[PromptID]Evaluation, error)
	ListCompletedByPrompt(ctx context.Context, promptID PromptID) ([]Evaluation, error)
	HasInProgress(ctx context.Context, promptID PromptID) (bool, error)
	FindPlan(ctx context.Context, assistantName, planName string) (AssistantPlan, error)
}

// EmbeddingService encodes prompt texts into fixed-width vectors. Treated as a
// black box; implementations call an external model service.
type EmbeddingService interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// NNMatch is one nearest-neighbour hit with its cosine similarity.
type NNMatch struct {
	PromptID PromptID
	Score    float32
}

// NearestNeighborIndex answers cosine nearest-neighbour queries over prompt
// embeddings and is kept in sync on prompt insert.
type NearestNeighborIndex interface {
	Upsert(ctx context.Context, id PromptID, vector []float32, text string) error
	FindNearest(ctx context.Context, vector []float32, k int) ([]NNMatch, error)
}
