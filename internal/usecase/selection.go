package usecase

import (
	"context"
	"fmt"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// MostRecentSelection is the default selection strategy: pick the newest
// completed evaluation.
type MostRecentSelection struct{}

func (MostRecentSelection) SelectDefault(options []domain.EvaluationOption) *domain.EvaluationID {
	var best *domain.EvaluationOption
	for i := range options {
		if best == nil || options[i].CompletedAt.After(best.CompletedAt) {
			best = &options[i]
		}
	}
	if best == nil {
		return nil
	}
	id := best.EvaluationID
	return &id
}

// SelectionAnalyzer computes, per prompt in a group, which evaluations the
// user may include in the next report and what each would cost.
type SelectionAnalyzer struct {
	Prompts  domain.PromptRepository
	Evals    domain.EvaluationRepository
	Billing  domain.BillingRepository
	Reports  domain.ReportRepository
	Pricing  domain.PricingStrategy
	Strategy domain.SelectionStrategy
}

// NewSelectionAnalyzer constructs a SelectionAnalyzer.
func NewSelectionAnalyzer(p domain.PromptRepository, e domain.EvaluationRepository, b domain.BillingRepository, r domain.ReportRepository, pr domain.PricingStrategy, st domain.SelectionStrategy) SelectionAnalyzer {
	return SelectionAnalyzer{Prompts: p, Evals: e, Billing: b, Reports: r, Pricing: pr, Strategy: st}
}

// lastReportState indexes the previous report by prompt.
type lastReportState struct {
	report   *domain.GroupReport
	byPrompt map[domain.PromptID]domain.GroupReportItem
}

func (s SelectionAnalyzer) lastReport(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (lastReportState, error) {
	rep, items, err := s.Reports.Last(ctx, groupID, userID)
	if err != nil {
		return lastReportState{}, err
	}
	state := lastReportState{report: rep, byPrompt: make(map[domain.PromptID]domain.GroupReportItem, len(items))}
	for _, it := range items {
		state.byPrompt[it.PromptID] = it
	}
	return state, nil
}

// Analyze computes the per-prompt selection info for a group. An evaluation is
// selectable when it is strictly newer than the one in the last report, or is
// the last report's own pick (re-selecting it is free). Without a previous
// report every completed evaluation is selectable.
func (s SelectionAnalyzer) Analyze(ctx context.Context, group domain.PromptGroup, userID domain.UserID) ([]domain.PromptSelectionInfo, error) {
	promptIDs, err := s.Prompts.GroupPromptIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if len(promptIDs) == 0 {
		return nil, nil
	}
	prompts, err := s.Prompts.GetByIDs(ctx, promptIDs)
	if err != nil {
		return nil, err
	}
	last, err := s.lastReport(ctx, group.ID, userID)
	if err != nil {
		return nil, err
	}
	unitPrice := s.Pricing.UnitPrice(ctx, userID)

	infos := make([]domain.PromptSelectionInfo, 0, len(promptIDs))
	for _, pid := range promptIDs {
		evals, err := s.Evals.ListCompletedByPrompt(ctx, pid)
		if err != nil {
			return nil, err
		}

		var lastEval *domain.EvaluationID
		hadItem := false
		if last.report != nil {
			if it, ok := last.byPrompt[pid]; ok {
				hadItem = true
				lastEval = it.EvaluationID
			}
		}

		ids := make([]domain.EvaluationID, 0, len(evals))
		selectable := make([]domain.Evaluation, 0, len(evals))
		for _, e := range evals {
			if last.report != nil && lastEval != nil && e.ID != *lastEval {
				prevEval, ok := evalByID(evals, *lastEval)
				if ok && prevEval.CompletedAt != nil &&
					(e.CompletedAt == nil || !e.CompletedAt.After(*prevEval.CompletedAt)) {
					continue
				}
			}
			selectable = append(selectable, e)
			ids = append(ids, e.ID)
		}

		consumed, err := s.Billing.ListConsumed(ctx, userID, ids)
		if err != nil {
			return nil, err
		}

		options := make([]domain.EvaluationOption, 0, len(selectable))
		for _, e := range selectable {
			_, paid := consumed[e.ID]
			opt := domain.EvaluationOption{EvaluationID: e.ID, IsFresh: !paid, UnitPrice: unitPrice}
			if paid {
				opt.UnitPrice = 0
			}
			if e.CompletedAt != nil {
				opt.CompletedAt = *e.CompletedAt
			}
			options = append(options, opt)
		}

		inProgress, err := s.Evals.HasInProgress(ctx, pid)
		if err != nil {
			return nil, err
		}

		info := domain.PromptSelectionInfo{
			PromptID:                pid,
			AvailableOptions:        options,
			DefaultSelection:        s.Strategy.SelectDefault(options),
			WasAwaitingInLastReport: last.report != nil && (!hadItem || lastEval == nil),
			HasInProgressEvaluation: inProgress,
		}
		if p, ok := prompts[pid]; ok {
			info.PromptText = p.Text
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func evalByID(evals []domain.Evaluation, id domain.EvaluationID) (domain.Evaluation, bool) {
	for _, e := range evals {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Evaluation{}, false
}

// Validate checks user selections against the analysis and fills in defaults
// for prompts not covered when useDefaults is set. A nil evaluation id keeps
// the prompt awaiting.
func (s SelectionAnalyzer) Validate(selections []domain.Selection, infos []domain.PromptSelectionInfo, useDefaults bool) ([]domain.Selection, error) {
	byPrompt := make(map[domain.PromptID]domain.PromptSelectionInfo, len(infos))
	for _, info := range infos {
		byPrompt[info.PromptID] = info
	}

	seen := make(map[domain.PromptID]struct{}, len(selections))
	out := make([]domain.Selection, 0, len(infos))
	for _, sel := range selections {
		if _, dup := seen[sel.PromptID]; dup {
			return nil, fmt.Errorf("%w: duplicate selection for prompt %d", domain.ErrInvalidArgument, sel.PromptID)
		}
		seen[sel.PromptID] = struct{}{}
		info, ok := byPrompt[sel.PromptID]
		if !ok {
			return nil, fmt.Errorf("%w: prompt %d not in group", domain.ErrInvalidArgument, sel.PromptID)
		}
		if sel.EvaluationID != nil {
			found := false
			for _, opt := range info.AvailableOptions {
				if opt.EvaluationID == *sel.EvaluationID {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: evaluation %d not selectable for prompt %d", domain.ErrInvalidArgument, *sel.EvaluationID, sel.PromptID)
			}
		}
		out = append(out, sel)
	}

	for _, info := range infos {
		if _, covered := seen[info.PromptID]; covered {
			continue
		}
		sel := domain.Selection{PromptID: info.PromptID}
		if useDefaults {
			sel.EvaluationID = info.DefaultSelection
		}
		out = append(out, sel)
	}
	return out, nil
}

// SelectionCost prices a validated selection: already-consumed picks are free.
func (s SelectionAnalyzer) SelectionCost(ctx context.Context, userID domain.UserID, selections []domain.Selection) (float64, []domain.EvaluationID, error) {
	var ids []domain.EvaluationID
	for _, sel := range selections {
		if sel.EvaluationID != nil {
			ids = append(ids, *sel.EvaluationID)
		}
	}
	consumed, err := s.Billing.ListConsumed(ctx, userID, ids)
	if err != nil {
		return 0, nil, err
	}
	var fresh []domain.EvaluationID
	for _, id := range ids {
		if _, paid := consumed[id]; !paid {
			fresh = append(fresh, id)
		}
	}
	return s.Pricing.Total(ctx, userID, len(fresh)), fresh, nil
}
