package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// BillingRepo persists credit grants, balance transactions and consumptions.
// Grants and transactions live in the users store; consumed_evaluations lives
// in the evals store because its unique key references evaluations.
type BillingRepo struct {
	Users PgxPool
	Evals PgxPool
}

// NewBillingRepo constructs a BillingRepo over the two stores.
func NewBillingRepo(users, evals PgxPool) *BillingRepo {
	return &BillingRepo{Users: users, Evals: evals}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// AvailableBalance sums remaining amounts over non-expired grants.
func (r *BillingRepo) AvailableBalance(ctx context.Context, userID domain.UserID) (float64, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.AvailableBalance")
	defer span.End()

	q := `SELECT COALESCE(SUM(remaining_amount), 0) FROM credit_grants
		WHERE user_id = $1 AND remaining_amount > 0 AND (expires_at IS NULL OR expires_at > now())`
	var bal float64
	if err := r.Users.QueryRow(ctx, q, userID).Scan(&bal); err != nil {
		return 0, fmt.Errorf("op=billing.balance: %w", err)
	}
	return bal, nil
}

// grantLockQuery orders grants FIFO by expiry so soon-to-expire credit drains
// first; FOR UPDATE serialises concurrent debits of the same user.
const grantLockQuery = `SELECT id, remaining_amount FROM credit_grants
	WHERE user_id = $1 AND remaining_amount > 0 AND (expires_at IS NULL OR expires_at > now())
	ORDER BY expires_at ASC NULLS LAST, created_at ASC
	FOR UPDATE`

// debitGrants walks the locked grants consuming amount; returns the post-debit
// balance or ErrInsufficientBalance without writing anything.
func debitGrants(ctx context.Context, tx pgx.Tx, userID domain.UserID, amount float64) (float64, error) {
	rows, err := tx.Query(ctx, grantLockQuery, userID)
	if err != nil {
		return 0, err
	}
	type grant struct {
		id        int64
		remaining float64
	}
	var grants []grant
	var available float64
	for rows.Next() {
		var g grant
		if err := rows.Scan(&g.id, &g.remaining); err != nil {
			rows.Close()
			return 0, err
		}
		grants = append(grants, g)
		available += g.remaining
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if available < amount {
		return 0, fmt.Errorf("required %.4f available %.4f: %w", amount, available, domain.ErrInsufficientBalance)
	}

	left := amount
	for _, g := range grants {
		if left <= 0 {
			break
		}
		take := g.remaining
		if take > left {
			take = left
		}
		if _, err := tx.Exec(ctx, `UPDATE credit_grants SET remaining_amount = remaining_amount - $2 WHERE id = $1`, g.id, take); err != nil {
			return 0, err
		}
		left -= take
	}
	return available - amount, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, userID domain.UserID, typ domain.TransactionType, amount, balanceAfter float64, reason string, refType, refID *string) error {
	q := `INSERT INTO balance_transactions (user_id, type, amount, balance_after, reason, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Exec(ctx, q, userID, typ, amount, balanceAfter, reason, refType, refID)
	return err
}

// Debit is the raw FIFO debit; callers bypassing the charge engine must catch
// ErrInsufficientBalance themselves.
func (r *BillingRepo) Debit(ctx context.Context, userID domain.UserID, amount float64, reason string, refType, refID *string) (float64, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.Debit")
	defer span.End()

	tx, err := r.Users.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=billing.debit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	after, err := debitGrants(ctx, tx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("op=billing.debit: %w", err)
	}
	if err := appendTransaction(ctx, tx, userID, domain.TxnDebit, amount, after, reason, refType, refID); err != nil {
		return 0, fmt.Errorf("op=billing.debit.audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=billing.debit: %w", err)
	}
	return after, nil
}

func consumeEvals(ctx context.Context, tx pgx.Tx, userID domain.UserID, evalIDs []domain.EvaluationID, unitPrice float64) error {
	ins := `INSERT INTO consumed_evaluations (user_id, evaluation_id, amount_charged) VALUES ($1, $2, $3)`
	for _, id := range evalIDs {
		if _, err := tx.Exec(ctx, ins, userID, id, unitPrice); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("op=billing.charge: user %s evaluation %d: %w", userID, id, domain.ErrDuplicateConsumption)
			}
			return fmt.Errorf("op=billing.charge.consume: %w", err)
		}
	}
	return nil
}

// DebitAndConsume is the charge engine's transactional write: debit the total,
// append the audit row, and insert one consumption per evaluation. A unique
// violation on any consumption rolls the entire charge back.
//
// When the users and evals stores share one pool (the default deployment)
// everything runs in a single transaction. When the stores are split, the
// consumption side commits first and the debit second; a debit-commit failure
// triggers a compensating delete of the just-inserted consumption rows so
// evaluations are never consumed without a matching debit.
func (r *BillingRepo) DebitAndConsume(ctx context.Context, userID domain.UserID, evalIDs []domain.EvaluationID, unitPrice float64, reason string) (float64, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.DebitAndConsume")
	defer span.End()
	span.SetAttributes(attribute.Int("charge.evaluations", len(evalIDs)))

	total := unitPrice * float64(len(evalIDs))

	utx, err := r.Users.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=billing.charge: %w", err)
	}
	defer func() { _ = utx.Rollback(ctx) }()

	after := 0.0
	if total > 0 {
		after, err = debitGrants(ctx, utx, userID, total)
		if err != nil {
			return 0, fmt.Errorf("op=billing.charge: %w", err)
		}
		ref := "evaluation_batch"
		if err := appendTransaction(ctx, utx, userID, domain.TxnDebit, total, after, reason, &ref, nil); err != nil {
			return 0, fmt.Errorf("op=billing.charge.audit: %w", err)
		}
	} else {
		if after, err = r.AvailableBalance(ctx, userID); err != nil {
			return 0, err
		}
	}

	if r.Users == r.Evals {
		if err := consumeEvals(ctx, utx, userID, evalIDs, unitPrice); err != nil {
			return 0, err
		}
		if err := utx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("op=billing.charge: %w", err)
		}
		return after, nil
	}

	etx, err := r.Evals.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=billing.charge: %w", err)
	}
	defer func() { _ = etx.Rollback(ctx) }()

	if err := consumeEvals(ctx, etx, userID, evalIDs, unitPrice); err != nil {
		return 0, err
	}

	if err := etx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=billing.charge: %w", err)
	}
	if err := utx.Commit(ctx); err != nil {
		ids := make([]int64, 0, len(evalIDs))
		for _, id := range evalIDs {
			ids = append(ids, int64(id))
		}
		del := `DELETE FROM consumed_evaluations WHERE user_id = $1 AND evaluation_id = ANY($2)`
		if _, derr := r.Evals.Exec(ctx, del, userID, ids); derr != nil {
			return 0, fmt.Errorf("op=billing.charge: debit commit failed and compensation failed: %w (compensation: %v)", err, derr)
		}
		return 0, fmt.Errorf("op=billing.charge: %w", err)
	}
	return after, nil
}

// Credit creates a new grant and appends the audit transaction.
func (r *BillingRepo) Credit(ctx context.Context, userID domain.UserID, amount float64, source domain.GrantSource, reason string, expiresAt *time.Time) (domain.CreditGrant, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.Credit")
	defer span.End()

	tx, err := r.Users.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.CreditGrant{}, fmt.Errorf("op=billing.credit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g := domain.CreditGrant{UserID: userID, Source: source, OriginalAmount: amount, RemainingAmount: amount, ExpiresAt: expiresAt}
	ins := `INSERT INTO credit_grants (user_id, source, original_amount, remaining_amount, expires_at)
		VALUES ($1, $2, $3, $3, $4) RETURNING id, created_at`
	if err := tx.QueryRow(ctx, ins, userID, source, amount, expiresAt).Scan(&g.ID, &g.CreatedAt); err != nil {
		return domain.CreditGrant{}, fmt.Errorf("op=billing.credit: %w", err)
	}

	var after float64
	sum := `SELECT COALESCE(SUM(remaining_amount), 0) FROM credit_grants
		WHERE user_id = $1 AND remaining_amount > 0 AND (expires_at IS NULL OR expires_at > now())`
	if err := tx.QueryRow(ctx, sum, userID).Scan(&after); err != nil {
		return domain.CreditGrant{}, fmt.Errorf("op=billing.credit: %w", err)
	}
	if err := appendTransaction(ctx, tx, userID, domain.TxnCredit, amount, after, reason, nil, nil); err != nil {
		return domain.CreditGrant{}, fmt.Errorf("op=billing.credit.audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.CreditGrant{}, fmt.Errorf("op=billing.credit: %w", err)
	}
	return g, nil
}

// ListConsumed returns the user's consumption rows among evalIDs.
func (r *BillingRepo) ListConsumed(ctx context.Context, userID domain.UserID, evalIDs []domain.EvaluationID) (map[domain.EvaluationID]domain.ConsumedEvaluation, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.ListConsumed")
	defer span.End()

	ids := make([]int64, 0, len(evalIDs))
	for _, id := range evalIDs {
		ids = append(ids, int64(id))
	}
	q := `SELECT id, user_id, evaluation_id, amount_charged, consumed_at FROM consumed_evaluations
		WHERE user_id = $1 AND evaluation_id = ANY($2)`
	rows, err := r.Evals.Query(ctx, q, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("op=billing.list_consumed: %w", err)
	}
	defer rows.Close()
	out := make(map[domain.EvaluationID]domain.ConsumedEvaluation)
	for rows.Next() {
		var c domain.ConsumedEvaluation
		if err := rows.Scan(&c.ID, &c.UserID, &c.EvaluationID, &c.AmountCharged, &c.ConsumedAt); err != nil {
			return nil, fmt.Errorf("op=billing.list_consumed: %w", err)
		}
		out[c.EvaluationID] = c
	}
	return out, rows.Err()
}

// Transactions returns the newest audit rows for a user.
func (r *BillingRepo) Transactions(ctx context.Context, userID domain.UserID, limit int) ([]domain.BalanceTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, user_id, type, amount, balance_after, reason, reference_type, reference_id, created_at
		FROM balance_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.Users.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=billing.transactions: %w", err)
	}
	defer rows.Close()
	var out []domain.BalanceTransaction
	for rows.Next() {
		var t domain.BalanceTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Reason, &t.ReferenceType, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=billing.transactions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreditSignupBonus inserts the bonus grant unless the process-wide cap on
// signup_bonus grants is reached. Count and insert share one transaction; the
// small overshoot possible at the cap boundary is accepted behaviour.
func (r *BillingRepo) CreditSignupBonus(ctx context.Context, userID domain.UserID, amount float64, maxBonuses int, expiresAt *time.Time) (bool, error) {
	tracer := otel.Tracer("repo.billing")
	ctx, span := tracer.Start(ctx, "billing.CreditSignupBonus")
	defer span.End()

	tx, err := r.Users.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var granted int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM credit_grants WHERE source = 'signup_bonus'`).Scan(&granted); err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	if granted >= maxBonuses {
		return false, nil
	}

	ins := `INSERT INTO credit_grants (user_id, source, original_amount, remaining_amount, expires_at)
		VALUES ($1, 'signup_bonus', $2, $2, $3)`
	if _, err := tx.Exec(ctx, ins, userID, amount, expiresAt); err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	var after float64
	sum := `SELECT COALESCE(SUM(remaining_amount), 0) FROM credit_grants
		WHERE user_id = $1 AND remaining_amount > 0 AND (expires_at IS NULL OR expires_at > now())`
	if err := tx.QueryRow(ctx, sum, userID).Scan(&after); err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	if err := appendTransaction(ctx, tx, userID, domain.TxnCredit, amount, after, "signup bonus", nil, nil); err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("op=billing.signup_bonus: %w", err)
	}
	return true, nil
}
