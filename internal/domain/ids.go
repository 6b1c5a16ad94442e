package domain

import "strconv"

// Typed identifiers. Prompt and user references cross store boundaries without
// foreign keys, so each id gets its own type to keep them from being swapped.

// PromptID identifies a prompt in the prompt store.
type PromptID int64

// QueueEntryID identifies an execution queue entry.
type QueueEntryID int64

// EvaluationID identifies a prompt evaluation.
type EvaluationID int64

// PlanID identifies an assistant plan.
type PlanID int64

// GroupID identifies a prompt group.
type GroupID int64

// ReportID identifies a group report.
type ReportID int64

// GrantID identifies a credit grant.
type GrantID int64

// UserID is the opaque 36-char user identifier issued by the users store.
type UserID string

func (id PromptID) String() string     { return strconv.FormatInt(int64(id), 10) }
func (id QueueEntryID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id EvaluationID) String() string { return strconv.FormatInt(int64(id), 10) }
