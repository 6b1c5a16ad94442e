package domain

import (
	"context"
	"time"
)

// Brand is the tracked brand/competitor metadata stored on a group.
type Brand struct {
	Name    string   `json:"name"`
	Domain  string   `json:"domain,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// PromptGroup is a user-owned set of prompts plus brand metadata.
// (user_id, title) is unique; the topic is immutable after creation.
type PromptGroup struct {
	ID          GroupID
	UserID      UserID
	Title       string
	TopicID     int64
	Brand       Brand
	Competitors []Brand
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReportItemStatus enumerates report item states.
type ReportItemStatus string

const (
	ItemIncluded ReportItemStatus = "included"
	ItemAwaiting ReportItemStatus = "awaiting"
	ItemSkipped  ReportItemStatus = "skipped"
)

// GroupReport is a snapshot of which evaluation represents each prompt in a
// group at a point in time, plus the cost paid to assemble it. Brand and
// competitors are snapshotted so later compares can diff against them.
type GroupReport struct {
	ID                     ReportID
	GroupID                GroupID
	UserID                 UserID
	Title                  *string
	CreatedAt              time.Time
	TotalPrompts           int
	PromptsWithData        int
	PromptsAwaiting        int
	TotalEvaluationsLoaded int
	TotalCost              float64
	BrandSnapshot          Brand
	CompetitorsSnapshot    []Brand
}

// GroupReportItem is one prompt's slot in a report.
type GroupReportItem struct {
	ID            int64
	ReportID      ReportID
	PromptID      PromptID
	EvaluationID  *EvaluationID
	Status        ReportItemStatus
	IsFresh       bool
	AmountCharged *float64
}

// EvaluationOption is one selectable evaluation for a prompt, annotated with
// whether charging it would cost anything for this user.
type EvaluationOption struct {
	EvaluationID EvaluationID
	CompletedAt  time.Time
	IsFresh      bool
	UnitPrice    float64
}

// PromptSelectionInfo is the per-prompt selection analysis driving report
// generation.
type PromptSelectionInfo struct {
	PromptID                PromptID
	PromptText              string
	AvailableOptions        []EvaluationOption
	DefaultSelection        *EvaluationID
	WasAwaitingInLastReport bool
	HasInProgressEvaluation bool
}

// Selection is the user's explicit choice for one prompt. A nil EvaluationID
// means the prompt stays awaiting.
type Selection struct {
	PromptID     PromptID
	EvaluationID *EvaluationID
}

// SelectionStrategy picks the default evaluation for a prompt. The default
// implementation selects the most recent completed evaluation.
type SelectionStrategy interface {
	SelectDefault(options []EvaluationOption) *EvaluationID
}

// BrandChanges is the diff between a group's current brand metadata and its
// last-report-time snapshot.
type BrandChanges struct {
	BrandChanged       bool    `json:"brand_changed"`
	CompetitorsAdded   []Brand `json:"competitors_added,omitempty"`
	CompetitorsRemoved []Brand `json:"competitors_removed,omitempty"`
}

// FreshnessComparison is the /compare contract.
type FreshnessComparison struct {
	PromptSelections         []PromptSelectionInfo
	BrandChanges             *BrandChanges
	CanGenerate              bool
	GenerationDisabledReason string
}

// PromptRepository persists prompts, groups and bindings in the prompt store.
type PromptRepository interface {
	Get(ctx context.Context, id PromptID) (Prompt, error)
	GetByIDs(ctx context.Context, ids []PromptID) (map[PromptID]Prompt, error)
	Insert(ctx context.Context, text string, embedding []float32, topicID *int64, userID *UserID) (PromptID, error)
	GetGroup(ctx context.Context, id GroupID) (PromptGroup, error)
	GroupPromptIDs(ctx context.Context, id GroupID) ([]PromptID, error)
	BindToGroup(ctx context.Context, groupID GroupID, promptID PromptID) error
}

// ReportRepository persists reports and their items in the eval store.
type ReportRepository interface {
	// Create inserts the report and all its items in one transaction so the
	// report either exists with its items or not at all.
	Create(ctx context.Context, report GroupReport, items []GroupReportItem) (ReportID, error)
	Last(ctx context.Context, groupID GroupID, userID UserID) (*GroupReport, []GroupReportItem, error)
	Get(ctx context.Context, id ReportID, userID UserID) (GroupReport, []GroupReportItem, error)
}
