package usecase

import (
	"context"
	"fmt"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// ReportService assembles report snapshots for prompt groups.
type ReportService struct {
	Prompts  domain.PromptRepository
	Reports  domain.ReportRepository
	Analyzer SelectionAnalyzer
	Charger  ChargeService
}

// NewReportService constructs a ReportService.
func NewReportService(p domain.PromptRepository, r domain.ReportRepository, a SelectionAnalyzer, c ChargeService) ReportService {
	return ReportService{Prompts: p, Reports: r, Analyzer: a, Charger: c}
}

func (s ReportService) ownedGroup(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (domain.PromptGroup, error) {
	group, err := s.Prompts.GetGroup(ctx, groupID)
	if err != nil {
		return domain.PromptGroup{}, err
	}
	if group.UserID != userID {
		return domain.PromptGroup{}, fmt.Errorf("op=report.group: %w", domain.ErrNotFound)
	}
	return group, nil
}

// Generate snapshots the group: validate selections, charge the fresh picks,
// and persist the report with its items atomically. The charge may partially
// succeed; fresh picks the balance could not cover are recorded as skipped
// items and total_cost reflects only what was actually charged.
// ErrInsufficientBalance is returned only when not a single fresh pick is
// affordable.
func (s ReportService) Generate(ctx context.Context, groupID domain.GroupID, userID domain.UserID, selections []domain.Selection, title *string, useDefaults bool) (domain.GroupReport, []domain.GroupReportItem, error) {
	group, err := s.ownedGroup(ctx, groupID, userID)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}

	infos, err := s.Analyzer.Analyze(ctx, group, userID)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}

	// Empty group: emit an empty report with zero counts.
	if len(infos) == 0 {
		report := domain.GroupReport{
			GroupID:             groupID,
			UserID:              userID,
			Title:               title,
			BrandSnapshot:       group.Brand,
			CompetitorsSnapshot: group.Competitors,
		}
		id, err := s.Reports.Create(ctx, report, nil)
		if err != nil {
			return domain.GroupReport{}, nil, err
		}
		report.ID = id
		observability.ReportsGeneratedTotal.Inc()
		return report, nil, nil
	}

	validated, err := s.Analyzer.Validate(selections, infos, useDefaults)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}

	cost, freshIDs, err := s.Analyzer.SelectionCost(ctx, userID, validated)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}
	unitPrice := s.Charger.Pricing.UnitPrice(ctx, userID)
	if cost > 0 {
		balance, err := s.Charger.Balance(ctx, userID)
		if err != nil {
			return domain.GroupReport{}, nil, err
		}
		if balance < unitPrice {
			return domain.GroupReport{}, nil, fmt.Errorf("op=report.generate: need %.4f have %.4f: %w", cost, balance, domain.ErrInsufficientBalance)
		}
	}

	charge, err := s.Charger.Charge(ctx, userID, freshIDs)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}
	fresh := make(map[domain.EvaluationID]struct{}, len(freshIDs))
	for _, id := range freshIDs {
		fresh[id] = struct{}{}
	}
	charged := make(map[domain.EvaluationID]struct{}, len(charge.Charged))
	for _, id := range charge.Charged {
		charged[id] = struct{}{}
	}

	var items []domain.GroupReportItem
	withData, awaiting, loaded := 0, 0, 0
	for _, sel := range validated {
		item := domain.GroupReportItem{PromptID: sel.PromptID, Status: domain.ItemAwaiting}
		if sel.EvaluationID != nil {
			item.Status = domain.ItemIncluded
			item.EvaluationID = sel.EvaluationID
			if _, isFresh := fresh[*sel.EvaluationID]; isFresh {
				if _, paid := charged[*sel.EvaluationID]; paid {
					item.IsFresh = true
					amount := unitPrice
					item.AmountCharged = &amount
				} else {
					// Fresh pick the charge engine could not afford.
					item.Status = domain.ItemSkipped
				}
			}
		}
		if item.Status == domain.ItemIncluded {
			withData++
			loaded++
		} else {
			awaiting++
		}
		items = append(items, item)
	}

	report := domain.GroupReport{
		GroupID:                groupID,
		UserID:                 userID,
		Title:                  title,
		TotalPrompts:           len(validated),
		PromptsWithData:        withData,
		PromptsAwaiting:        awaiting,
		TotalEvaluationsLoaded: loaded,
		TotalCost:              charge.TotalCharged,
		BrandSnapshot:          group.Brand,
		CompetitorsSnapshot:    group.Competitors,
	}
	id, err := s.Reports.Create(ctx, report, items)
	if err != nil {
		return domain.GroupReport{}, nil, err
	}
	report.ID = id
	for i := range items {
		items[i].ReportID = id
	}
	observability.ReportsGeneratedTotal.Inc()
	obsctx.LoggerFromContext(ctx).Info("report generated",
		"report_id", id, "group_id", groupID, "prompts", report.TotalPrompts, "cost", report.TotalCost)
	return report, items, nil
}

// Get loads one report scoped to its owner.
func (s ReportService) Get(ctx context.Context, id domain.ReportID, userID domain.UserID) (domain.GroupReport, []domain.GroupReportItem, error) {
	return s.Reports.Get(ctx, id, userID)
}

// Compare implements the freshness comparison: per-prompt selection analysis,
// the brand diff against the last report's snapshot, and whether a new report
// is worth generating.
func (s ReportService) Compare(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (domain.FreshnessComparison, error) {
	group, err := s.ownedGroup(ctx, groupID, userID)
	if err != nil {
		return domain.FreshnessComparison{}, err
	}
	infos, err := s.Analyzer.Analyze(ctx, group, userID)
	if err != nil {
		return domain.FreshnessComparison{}, err
	}

	cmp := domain.FreshnessComparison{PromptSelections: infos}

	last, _, err := s.Reports.Last(ctx, groupID, userID)
	if err != nil {
		return domain.FreshnessComparison{}, err
	}
	if last != nil {
		cmp.BrandChanges = diffBrands(group, *last)
	}

	// Brand changes alone do not gate generation; report statistics are
	// recalculable on the fly. Only fresh default picks count.
	freshDefaults := 0
	for _, info := range infos {
		if info.DefaultSelection == nil {
			continue
		}
		for _, opt := range info.AvailableOptions {
			if opt.EvaluationID == *info.DefaultSelection && opt.IsFresh {
				freshDefaults++
				break
			}
		}
	}
	cmp.CanGenerate = freshDefaults > 0
	if !cmp.CanGenerate {
		cmp.GenerationDisabledReason = "no_new_data"
	}
	return cmp, nil
}

func diffBrands(group domain.PromptGroup, last domain.GroupReport) *domain.BrandChanges {
	changes := &domain.BrandChanges{
		BrandChanged: group.Brand.Name != last.BrandSnapshot.Name || group.Brand.Domain != last.BrandSnapshot.Domain,
	}
	prev := make(map[string]domain.Brand, len(last.CompetitorsSnapshot))
	for _, b := range last.CompetitorsSnapshot {
		prev[b.Name] = b
	}
	cur := make(map[string]domain.Brand, len(group.Competitors))
	for _, b := range group.Competitors {
		cur[b.Name] = b
		if _, ok := prev[b.Name]; !ok {
			changes.CompetitorsAdded = append(changes.CompetitorsAdded, b)
		}
	}
	for _, b := range last.CompetitorsSnapshot {
		if _, ok := cur[b.Name]; !ok {
			changes.CompetitorsRemoved = append(changes.CompetitorsRemoved, b)
		}
	}
	return changes
}
