package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosklyar/prompts-volume/internal/adapter/httpserver"
	"github.com/rosklyar/prompts-volume/internal/domain"
	"github.com/rosklyar/prompts-volume/internal/domain/mocks"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

const testUser = domain.UserID("2f6b8f41-63cf-4b9a-9e0f-1f1a2b3c4d5e")

type fixture struct {
	handler  http.Handler
	tokens   *httpserver.TokenManager
	registry *usecase.BatchRegistry

	queue   *mocks.MockQueueRepository
	evals   *mocks.MockEvaluationRepository
	prompts *mocks.MockPromptRepository
	billing *mocks.MockBillingRepository
	reports *mocks.MockReportRepository
	batches *mocks.MockBatchRepository
	scraper *mocks.MockScraperClient
	sink    *mocks.MockResultSink
	users   *mocks.MockUserRepository
	embed   *mocks.MockEmbeddingService
	index   *mocks.MockNearestNeighborIndex
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		tokens:   httpserver.NewTokenManager("test-secret", time.Hour),
		registry: usecase.NewBatchRegistry(time.Hour),
		queue:    mocks.NewMockQueueRepository(t),
		evals:    mocks.NewMockEvaluationRepository(t),
		prompts:  mocks.NewMockPromptRepository(t),
		billing:  mocks.NewMockBillingRepository(t),
		reports:  mocks.NewMockReportRepository(t),
		batches:  mocks.NewMockBatchRepository(t),
		scraper:  mocks.NewMockScraperClient(t),
		sink:     mocks.NewMockResultSink(t),
		users:    mocks.NewMockUserRepository(t),
		embed:    mocks.NewMockEmbeddingService(t),
		index:    mocks.NewMockNearestNeighborIndex(t),
	}

	pricing := usecase.FixedPricing{Price: 0.01}
	charges := usecase.NewChargeService(f.billing, pricing)
	analyzer := usecase.NewSelectionAnalyzer(f.prompts, f.evals, f.billing, f.reports, pricing, usecase.MostRecentSelection{})
	srv := httpserver.NewServer(
		usecase.NewQueueService(f.queue, f.evals, 2*time.Hour),
		charges,
		usecase.NewReportService(f.prompts, f.reports, analyzer, charges),
		usecase.NewBatchService(f.registry, f.batches, f.scraper, f.sink, "US"),
		usecase.NewUserService(f.users, f.billing, 4, time.Hour, 1.0, time.Hour, 10),
		usecase.NewIngestService(f.embed, f.index, f.prompts, f.queue, 0.995),
		usecase.NewWaitEstimator(30, 45, 60),
		f.prompts,
		f.tokens,
	)
	f.handler = srv.Router(httpserver.RouterConfig{
		CORSAllowOrigins: "*",
		WorkerTokens:     []string{"worker-secret"},
		WebhookSecret:    "hook-secret",
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) userAuth() string   { return "Bearer " + f.tokens.Issue(testUser) }
func (f *fixture) workerAuth() string { return "Bearer worker-secret" }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPoll_ReturnsClaim(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.evals.On("FindPlan", mock.Anything, "chatgpt", "free").
		Return(domain.AssistantPlan{ID: 2, Name: "free"}, nil)
	f.queue.On("ClaimNext", mock.Anything, domain.PlanID(2), 2*time.Hour).
		Return(&domain.Claim{
			Entry:      domain.QueueEntry{ID: 11, PromptID: 7, Status: domain.QueueInProgress, ClaimedAt: &now},
			Prompt:     domain.Prompt{ID: 7, Text: "best crm"},
			Evaluation: domain.Evaluation{ID: 31, PromptID: 7, PlanID: 2, Status: domain.EvalInProgress},
		}, nil)

	rec := f.do(t, http.MethodPost, "/evaluations/poll",
		map[string]string{"assistant_name": "chatgpt", "plan_name": "free"}, f.workerAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(11), body["queue_item_id"])
	assert.Equal(t, "best crm", body["prompt_text"])
	assert.Equal(t, float64(31), body["evaluation_id"])
}

func TestPoll_EmptyQueueNullFields(t *testing.T) {
	f := newFixture(t)
	f.evals.On("FindPlan", mock.Anything, "chatgpt", "free").
		Return(domain.AssistantPlan{ID: 2}, nil)
	f.queue.On("ClaimNext", mock.Anything, domain.PlanID(2), 2*time.Hour).Return(nil, nil)

	rec := f.do(t, http.MethodPost, "/evaluations/poll",
		map[string]string{"assistant_name": "chatgpt", "plan_name": "free"}, f.workerAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["queue_item_id"])
	assert.Nil(t, body["evaluation_id"])
}

func TestPoll_UnknownPlanIs422(t *testing.T) {
	f := newFixture(t)
	f.evals.On("FindPlan", mock.Anything, "chatgpt", "ultra").
		Return(domain.AssistantPlan{}, domain.ErrNotFound)

	rec := f.do(t, http.MethodPost, "/evaluations/poll",
		map[string]string{"assistant_name": "chatgpt", "plan_name": "ultra"}, f.workerAuth())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPoll_RequiresWorkerToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/evaluations/poll",
		map[string]string{"assistant_name": "chatgpt", "plan_name": "free"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmit_ConflictOnDoubleSubmit(t *testing.T) {
	f := newFixture(t)
	f.evals.On("SubmitAnswer", mock.Anything, domain.EvaluationID(31), mock.Anything).
		Return(domain.ErrConflict)

	rec := f.do(t, http.MethodPost, "/evaluations/submit", map[string]any{
		"evaluation_id": 31,
		"answer":        map[string]any{"response": "text", "citations": []any{}},
	}, f.workerAuth())

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestFresh_QueuesAndTriggersScrape(t *testing.T) {
	f := newFixture(t)
	f.queue.On("InsertPending", mock.Anything, domain.PromptID(7), testUser, mock.Anything).
		Return(domain.QueueEntry{ID: 1, PromptID: 7, Status: domain.QueuePending}, true, nil)
	f.queue.On("InsertPending", mock.Anything, domain.PromptID(8), testUser, mock.Anything).
		Return(domain.QueueEntry{}, false, nil)
	f.queue.On("PendingCount", mock.Anything).Return(3, nil)
	f.prompts.On("GetByIDs", mock.Anything, []domain.PromptID{7}).
		Return(map[domain.PromptID]domain.Prompt{7: {ID: 7, Text: "best crm"}}, nil)
	f.batches.On("Insert", mock.Anything, mock.Anything).Return(nil)
	f.scraper.On("Trigger", mock.Anything, mock.Anything, mock.MatchedBy(func(in []domain.ScraperInput) bool {
		return len(in) == 1 && in[0].Prompt == "best crm" && in[0].Country == "US"
	})).Return(nil)

	rec := f.do(t, http.MethodPost, "/execution/request-fresh",
		map[string]any{"prompt_ids": []int64{7, 8}}, f.userAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "queued", items[0].(map[string]any)["status"])
	assert.Equal(t, "already_pending", items[1].(map[string]any)["status"])
	assert.NotEmpty(t, body["scrape_batch_id"])
	assert.Equal(t, float64(3), body["pending_count"])
	assert.NotEmpty(t, body["estimated_total_wait"])
}

func TestRequestFresh_ScrapeFailureStillQueues(t *testing.T) {
	f := newFixture(t)
	f.queue.On("InsertPending", mock.Anything, domain.PromptID(7), testUser, mock.Anything).
		Return(domain.QueueEntry{ID: 1, PromptID: 7, Status: domain.QueuePending}, true, nil)
	f.queue.On("PendingCount", mock.Anything).Return(1, nil)
	f.prompts.On("GetByIDs", mock.Anything, []domain.PromptID{7}).
		Return(map[domain.PromptID]domain.Prompt{7: {ID: 7, Text: "best crm"}}, nil)
	f.batches.On("Insert", mock.Anything, mock.Anything).Return(nil)
	f.scraper.On("Trigger", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrUpstreamRateLimit)
	f.batches.On("UpdateStatus", mock.Anything, mock.Anything, domain.BatchFailed, mock.Anything).Return(nil)

	rec := f.do(t, http.MethodPost, "/execution/request-fresh",
		map[string]any{"prompt_ids": []int64{7}}, f.userAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["scrape_batch_id"])
	assert.Equal(t, "queued", body["items"].([]any)[0].(map[string]any)["status"])
}

func TestCancelQueueItem_NotFoundWhenNothingCancelled(t *testing.T) {
	f := newFixture(t)
	f.queue.On("CancelPending", mock.Anything, []domain.PromptID{9}, testUser).Return(0, nil)

	rec := f.do(t, http.MethodDelete, "/execution/queue/9", nil, f.userAuth())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueStatus_IncludesWaitEstimates(t *testing.T) {
	f := newFixture(t)
	f.queue.On("EntriesForUser", mock.Anything, testUser, mock.Anything).
		Return([]domain.QueueEntry{{PromptID: 7, Status: domain.QueuePending, RequestedAt: time.Now().UTC()}}, nil)
	f.queue.On("PendingCount", mock.Anything).Return(2, nil)

	rec := f.do(t, http.MethodGet, "/execution/queue/status", nil, f.userAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	// base 30 + 2 pending * 45
	assert.Equal(t, float64(120), first["estimated_wait_seconds"])
	assert.NotEmpty(t, first["estimated_wait"])
}

func TestCharge_PartialResult(t *testing.T) {
	f := newFixture(t)
	ids := []domain.EvaluationID{1, 2}
	f.billing.On("ListConsumed", mock.Anything, testUser, ids).
		Return(map[domain.EvaluationID]domain.ConsumedEvaluation{2: {EvaluationID: 2}}, nil)
	f.billing.On("AvailableBalance", mock.Anything, testUser).Return(0.5, nil)
	f.billing.On("DebitAndConsume", mock.Anything, testUser, []domain.EvaluationID{1}, 0.01, mock.Anything).
		Return(0.49, nil)

	rec := f.do(t, http.MethodPost, "/billing/charge",
		map[string]any{"evaluation_ids": []int64{1, 2}}, f.userAuth())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{float64(1)}, body["charged"])
	assert.Equal(t, []any{float64(2)}, body["skipped"])
	assert.InDelta(t, 0.49, body["remaining_balance"], 1e-9)
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	f.billing.On("AvailableBalance", mock.Anything, testUser).Return(1.25, nil)

	rec := f.do(t, http.MethodGet, "/billing/balance", nil, f.userAuth())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1.25, decodeBody(t, rec)["balance"], 1e-9)
}

func TestBilling_RequiresUserToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/billing/balance", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_ProcessesItemsAndReportsStatus(t *testing.T) {
	f := newFixture(t)
	f.registry.Register("batch-1", testUser, map[domain.PromptID]string{
		101: "How to X?",
		102: "Compare Y",
	})
	f.batches.On("Get", mock.Anything, "batch-1").
		Return(domain.ScraperBatch{BatchID: "batch-1", PromptIDs: []domain.PromptID{101, 102}}, nil)
	f.sink.On("Publish", mock.Anything, "batch-1", mock.MatchedBy(func(r domain.ParsedResult) bool {
		return r.PromptID == 101 && len(r.Citations) == 1 && r.Citations[0].URL == "https://a.com"
	})).Return(nil)
	f.batches.On("UpdateStatus", mock.Anything, "batch-1", domain.BatchPartial, mock.Anything).Return(nil)

	payload := []map[string]any{{
		"input":       map[string]string{"prompt": "How to X?"},
		"answer_text": "A",
		"citations": []map[string]any{
			{"url": "https://a.com", "cited": true},
			{"url": "https://b.com", "cited": false},
		},
		"model":     "m",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}}
	rec := f.do(t, http.MethodPost, "/brightdata/webhook/batch-1", payload, "Basic hook-secret")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["processed"])
	assert.Equal(t, "partial", body["status"])
}

func TestWebhook_RequiresBasicSecret(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/brightdata/webhook/batch-1", []map[string]any{}, "Basic wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignup_ValidationRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/auth/signup",
		map[string]string{"email": "not-an-email", "password": "short"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	f.users.On("FindByEmail", mock.Anything, "a@example.com").
		Return(domain.User{ID: testUser, Email: "a@example.com", HashedPassword: string(hash), IsActive: true}, nil)

	rec := f.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "a@example.com", "password": "password123"}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["access_token"].(string)
	require.NotEmpty(t, token)

	f.billing.On("AvailableBalance", mock.Anything, testUser).Return(0.0, nil)
	rec = f.do(t, http.MethodGet, "/billing/balance", nil, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
