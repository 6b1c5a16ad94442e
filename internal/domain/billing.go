package domain

import (
	"context"
	"time"
)

// GrantSource restricts credit grant provenance.
type GrantSource string

const (
	GrantSignupBonus GrantSource = "signup_bonus"
	GrantPayment     GrantSource = "payment"
	GrantPromoCode   GrantSource = "promo_code"
	GrantReferral    GrantSource = "referral"
	GrantAdmin       GrantSource = "admin_grant"
)

// CreditGrant is a unit of balance with optional expiry, consumed FIFO by
// expiry. Fully drained grants are kept for audit.
type CreditGrant struct {
	ID              GrantID
	UserID          UserID
	Source          GrantSource
	OriginalAmount  float64
	RemainingAmount float64
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

// TransactionType enumerates balance transaction directions.
type TransactionType string

const (
	TxnDebit  TransactionType = "debit"
	TxnCredit TransactionType = "credit"
)

// BalanceTransaction is one immutable row of the balance audit log.
// BalanceAfter records the post-operation balance.
type BalanceTransaction struct {
	ID            int64
	UserID        UserID
	Type          TransactionType
	Amount        float64
	BalanceAfter  float64
	Reason        string
	ReferenceType *string
	ReferenceID   *string
	CreatedAt     time.Time
}

// ConsumedEvaluation records that a user paid for an evaluation. The
// (user_id, evaluation_id) unique constraint is the charge engine's
// idempotency key.
type ConsumedEvaluation struct {
	ID            int64
	UserID        UserID
	EvaluationID  EvaluationID
	AmountCharged float64
	ConsumedAt    time.Time
}

// ChargeResult reports the outcome of a charge call. Skipped ids were either
// already consumed or not affordable; partiality is planned behaviour, not an
// error.
type ChargeResult struct {
	Charged          []EvaluationID
	Skipped          []EvaluationID
	TotalCharged     float64
	RemainingBalance float64
}

// ChargePreview is the dry-run counterpart of a charge.
type ChargePreview struct {
	FreshCount           int
	AlreadyConsumedCount int
	EstimatedCost        float64
	UserBalance          float64
	AffordableCount      int
	NeedsTopUp           bool
}

// PricingStrategy prices evaluations for a user. The default implementation is
// a fixed unit price from configuration.
type PricingStrategy interface {
	UnitPrice(ctx context.Context, userID UserID) float64
	Total(ctx context.Context, userID UserID, n int) float64
}

// BillingRepository persists grants, transactions and consumptions.
type BillingRepository interface {
	AvailableBalance(ctx context.Context, userID UserID) (float64, error)
	// DebitAndConsume debits amount across non-expired grants in FIFO-by-expiry
	// order under FOR UPDATE, appends the audit transaction, and inserts one
	// consumption row per evaluation, all in one transaction. A unique
	// violation on any consumption aborts the whole charge with
	// ErrDuplicateConsumption. The returned value is the post-debit balance.
	DebitAndConsume(ctx context.Context, userID UserID, evalIDs []EvaluationID, unitPrice float64, reason string) (float64, error)
	// Debit is the raw FIFO debit without consumption rows; it fails with
	// ErrInsufficientBalance when the locked view shows less than amount.
	Debit(ctx context.Context, userID UserID, amount float64, reason string, refType, refID *string) (float64, error)
	Credit(ctx context.Context, userID UserID, amount float64, source GrantSource, reason string, expiresAt *time.Time) (CreditGrant, error)
	ListConsumed(ctx context.Context, userID UserID, evalIDs []EvaluationID) (map[EvaluationID]ConsumedEvaluation, error)
	Transactions(ctx context.Context, userID UserID, limit int) ([]BalanceTransaction, error)
	// CreditSignupBonus inserts the bonus grant only while the process-wide cap
	// on signup_bonus grants has not been reached; the count and insert share
	// one transaction. Returns false when the cap is hit.
	CreditSignupBonus(ctx context.Context, userID UserID, amount float64, maxBonuses int, expiresAt *time.Time) (bool, error)
}
