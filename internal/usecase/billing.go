package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// FixedPricing charges a flat unit price for every user.
type FixedPricing struct{ Price float64 }

func (p FixedPricing) UnitPrice(context.Context, domain.UserID) float64 { return p.Price }
func (p FixedPricing) Total(_ context.Context, _ domain.UserID, n int) float64 {
	return p.Price * float64(n)
}

// ChargeService makes users pay for fresh evaluations atomically and
// idempotently. Partial affordability is planned behaviour, not an error.
type ChargeService struct {
	Billing domain.BillingRepository
	Pricing domain.PricingStrategy
}

// NewChargeService constructs a ChargeService.
func NewChargeService(b domain.BillingRepository, p domain.PricingStrategy) ChargeService {
	return ChargeService{Billing: b, Pricing: p}
}

// partition splits evalIDs into fresh candidates and already-consumed ids,
// preserving input order and dropping duplicates.
func (s ChargeService) partition(ctx context.Context, userID domain.UserID, evalIDs []domain.EvaluationID) (candidates, consumed []domain.EvaluationID, err error) {
	existing, err := s.Billing.ListConsumed(ctx, userID, evalIDs)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[domain.EvaluationID]struct{}, len(evalIDs))
	for _, id := range evalIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := existing[id]; ok {
			consumed = append(consumed, id)
		} else {
			candidates = append(candidates, id)
		}
	}
	return candidates, consumed, nil
}

func affordableCount(balance, unitPrice float64, n int) int {
	if unitPrice <= 0 {
		return n
	}
	c := int(math.Floor(balance / unitPrice))
	if c > n {
		c = n
	}
	return c
}

// chargeAttempts bounds the retry loop when concurrent chargers race on the
// consumption unique key.
const chargeAttempts = 3

// Charge debits the user for the fresh, affordable prefix of evalIDs. Already
// consumed and unaffordable ids are skipped, never an error. The debit and the
// consumption inserts commit atomically; when a concurrent charger wins the
// unique key the whole attempt rolls back and is re-partitioned.
func (s ChargeService) Charge(ctx context.Context, userID domain.UserID, evalIDs []domain.EvaluationID) (domain.ChargeResult, error) {
	unitPrice := s.Pricing.UnitPrice(ctx, userID)

	for attempt := 0; attempt < chargeAttempts; attempt++ {
		candidates, consumed, err := s.partition(ctx, userID, evalIDs)
		if err != nil {
			return domain.ChargeResult{}, err
		}
		balance, err := s.Billing.AvailableBalance(ctx, userID)
		if err != nil {
			return domain.ChargeResult{}, err
		}

		n := affordableCount(balance, unitPrice, len(candidates))
		toCharge := candidates[:n]
		skipped := append(append([]domain.EvaluationID{}, consumed...), candidates[n:]...)

		if len(toCharge) == 0 {
			observability.ChargesTotal.WithLabelValues("empty").Inc()
			return domain.ChargeResult{Skipped: skipped, RemainingBalance: balance}, nil
		}

		remaining, err := s.Billing.DebitAndConsume(ctx, userID, toCharge, unitPrice, "evaluation charge")
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateConsumption) {
				// A concurrent charger consumed one of ours; everything rolled
				// back, so re-partition and try again.
				obsctx.LoggerFromContext(ctx).Warn("charge raced", "user_id", userID, "attempt", attempt)
				continue
			}
			observability.ChargesTotal.WithLabelValues("error").Inc()
			return domain.ChargeResult{}, err
		}

		total := unitPrice * float64(len(toCharge))
		observability.ChargesTotal.WithLabelValues("charged").Inc()
		observability.ChargedAmountTotal.Add(total)
		return domain.ChargeResult{
			Charged:          toCharge,
			Skipped:          skipped,
			TotalCharged:     total,
			RemainingBalance: remaining,
		}, nil
	}
	return domain.ChargeResult{}, domain.ErrDuplicateConsumption
}

// Preview performs the charge partitioning without writing anything.
func (s ChargeService) Preview(ctx context.Context, userID domain.UserID, evalIDs []domain.EvaluationID) (domain.ChargePreview, error) {
	candidates, consumed, err := s.partition(ctx, userID, evalIDs)
	if err != nil {
		return domain.ChargePreview{}, err
	}
	balance, err := s.Billing.AvailableBalance(ctx, userID)
	if err != nil {
		return domain.ChargePreview{}, err
	}
	unitPrice := s.Pricing.UnitPrice(ctx, userID)
	cost := unitPrice * float64(len(candidates))
	n := affordableCount(balance, unitPrice, len(candidates))
	return domain.ChargePreview{
		FreshCount:           len(candidates),
		AlreadyConsumedCount: len(consumed),
		EstimatedCost:        cost,
		UserBalance:          balance,
		AffordableCount:      n,
		NeedsTopUp:           n < len(candidates),
	}, nil
}

// Balance returns the user's available balance.
func (s ChargeService) Balance(ctx context.Context, userID domain.UserID) (float64, error) {
	return s.Billing.AvailableBalance(ctx, userID)
}

// Transactions returns the newest audit rows.
func (s ChargeService) Transactions(ctx context.Context, userID domain.UserID, limit int) ([]domain.BalanceTransaction, error) {
	return s.Billing.Transactions(ctx, userID, limit)
}
