package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/domain"
	"github.com/rosklyar/prompts-volume/internal/domain/mocks"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

func option(id domain.EvaluationID, completed time.Time, fresh bool) domain.EvaluationOption {
	return domain.EvaluationOption{EvaluationID: id, CompletedAt: completed, IsFresh: fresh, UnitPrice: 0.01}
}

func TestMostRecentSelection(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	strategy := usecase.MostRecentSelection{}

	assert.Nil(t, strategy.SelectDefault(nil))

	got := strategy.SelectDefault([]domain.EvaluationOption{
		option(1, base, true),
		option(2, base.Add(time.Hour), true),
		option(3, base.Add(time.Minute), false),
	})
	require.NotNil(t, got)
	assert.Equal(t, domain.EvaluationID(2), *got)
}

func TestAnalyze_OnlyNewerThanLastReportSelectable(t *testing.T) {
	t.Parallel()
	prompts := mocks.NewMockPromptRepository(t)
	evals := mocks.NewMockEvaluationRepository(t)
	billing := mocks.NewMockBillingRepository(t)
	reports := mocks.NewMockReportRepository(t)
	analyzer := usecase.NewSelectionAnalyzer(prompts, evals, billing, reports,
		usecase.FixedPricing{Price: 0.01}, usecase.MostRecentSelection{})

	older := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	picked := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	pickedID := domain.EvaluationID(100)
	last := &domain.GroupReport{ID: 1, GroupID: 5, UserID: user}
	lastItems := []domain.GroupReportItem{{ReportID: 1, PromptID: 10, EvaluationID: &pickedID, Status: domain.ItemIncluded}}

	prompts.On("GroupPromptIDs", mock.Anything, domain.GroupID(5)).Return([]domain.PromptID{10}, nil)
	prompts.On("GetByIDs", mock.Anything, []domain.PromptID{10}).
		Return(map[domain.PromptID]domain.Prompt{10: {ID: 10, Text: "q"}}, nil)
	reports.On("Last", mock.Anything, domain.GroupID(5), user).Return(last, lastItems, nil)
	// 99 predates the last report's pick, 100 is the pick itself, 101 is newer.
	evals.On("ListCompletedByPrompt", mock.Anything, domain.PromptID(10)).Return([]domain.Evaluation{
		{ID: 99, PromptID: 10, Status: domain.EvalCompleted, CompletedAt: &older},
		{ID: 100, PromptID: 10, Status: domain.EvalCompleted, CompletedAt: &picked},
		{ID: 101, PromptID: 10, Status: domain.EvalCompleted, CompletedAt: &newer},
	}, nil)
	billing.On("ListConsumed", mock.Anything, user, []domain.EvaluationID{100, 101}).
		Return(map[domain.EvaluationID]domain.ConsumedEvaluation{100: {UserID: user, EvaluationID: 100}}, nil)
	evals.On("HasInProgress", mock.Anything, domain.PromptID(10)).Return(false, nil)

	infos, err := analyzer.Analyze(context.Background(), domain.PromptGroup{ID: 5, UserID: user}, user)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	info := infos[0]
	require.Len(t, info.AvailableOptions, 2)
	byID := map[domain.EvaluationID]domain.EvaluationOption{}
	for _, opt := range info.AvailableOptions {
		byID[opt.EvaluationID] = opt
	}
	repick := byID[100]
	assert.False(t, repick.IsFresh)
	assert.Zero(t, repick.UnitPrice)
	fresh := byID[101]
	assert.True(t, fresh.IsFresh)
	assert.InDelta(t, 0.01, fresh.UnitPrice, 1e-9)
	require.NotNil(t, info.DefaultSelection)
	assert.Equal(t, domain.EvaluationID(101), *info.DefaultSelection)
	assert.False(t, info.WasAwaitingInLastReport)
}

func validateFixture() []domain.PromptSelectionInfo {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	def10 := domain.EvaluationID(100)
	return []domain.PromptSelectionInfo{
		{
			PromptID:         10,
			AvailableOptions: []domain.EvaluationOption{option(100, base, true), option(101, base.Add(time.Hour), true)},
			DefaultSelection: &def10,
		},
		{PromptID: 11},
	}
}

func TestValidate_RejectsForeignPrompt(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer
	id := domain.EvaluationID(100)

	_, err := a.Validate([]domain.Selection{{PromptID: 99, EvaluationID: &id}}, validateFixture(), false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestValidate_RejectsDuplicates(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer
	id := domain.EvaluationID(100)

	_, err := a.Validate([]domain.Selection{
		{PromptID: 10, EvaluationID: &id},
		{PromptID: 10, EvaluationID: &id},
	}, validateFixture(), false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestValidate_RejectsNonSelectableEvaluation(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer
	id := domain.EvaluationID(999)

	_, err := a.Validate([]domain.Selection{{PromptID: 10, EvaluationID: &id}}, validateFixture(), false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestValidate_FillsDefaults(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer

	out, err := a.Validate(nil, validateFixture(), true)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byPrompt := map[domain.PromptID]domain.Selection{}
	for _, sel := range out {
		byPrompt[sel.PromptID] = sel
	}
	require.NotNil(t, byPrompt[10].EvaluationID)
	assert.Equal(t, domain.EvaluationID(100), *byPrompt[10].EvaluationID)
	assert.Nil(t, byPrompt[11].EvaluationID)
}

func TestValidate_WithoutDefaultsLeavesAwaiting(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer

	out, err := a.Validate(nil, validateFixture(), false)
	require.NoError(t, err)
	for _, sel := range out {
		assert.Nil(t, sel.EvaluationID)
	}
}

func TestValidate_NilEvaluationMeansAwaiting(t *testing.T) {
	t.Parallel()
	var a usecase.SelectionAnalyzer

	out, err := a.Validate([]domain.Selection{{PromptID: 10}}, validateFixture(), true)
	require.NoError(t, err)

	for _, sel := range out {
		if sel.PromptID == 10 {
			assert.Nil(t, sel.EvaluationID)
		}
	}
}
