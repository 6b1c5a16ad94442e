package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

// Server bundles the usecase services behind the REST surface.
type Server struct {
	Queue   usecase.QueueService
	Charges usecase.ChargeService
	Reports usecase.ReportService
	Batches usecase.BatchService
	Users   usecase.UserService
	Ingest  usecase.IngestService
	Wait    usecase.WaitEstimator
	Prompts domain.PromptRepository
	Tokens  *TokenManager
}

// NewServer constructs a Server.
func NewServer(queue usecase.QueueService, charges usecase.ChargeService, reports usecase.ReportService, batches usecase.BatchService, users usecase.UserService, ingest usecase.IngestService, wait usecase.WaitEstimator, prompts domain.PromptRepository, tokens *TokenManager) *Server {
	return &Server{
		Queue:   queue,
		Charges: charges,
		Reports: reports,
		Batches: batches,
		Users:   users,
		Ingest:  ingest,
		Wait:    wait,
		Prompts: prompts,
		Tokens:  tokens,
	}
}

// --- worker endpoints ---

type pollRequest struct {
	AssistantName string `json:"assistant_name" validate:"required"`
	PlanName      string `json:"plan_name" validate:"required"`
}

type pollResponse struct {
	QueueItemID  *domain.QueueEntryID `json:"queue_item_id"`
	PromptID     *domain.PromptID     `json:"prompt_id"`
	PromptText   *string              `json:"prompt_text"`
	EvaluationID *domain.EvaluationID `json:"evaluation_id"`
}

// PollEvaluation claims the oldest pending prompt for the caller's plan. An
// empty queue is a 200 with null fields, not an error.
func (s *Server) PollEvaluation(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	claim, err := s.Queue.PollNext(r.Context(), req.AssistantName, req.PlanName)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if claim == nil {
		writeJSON(w, http.StatusOK, pollResponse{})
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{
		QueueItemID:  &claim.Entry.ID,
		PromptID:     &claim.Prompt.ID,
		PromptText:   &claim.Prompt.Text,
		EvaluationID: &claim.Evaluation.ID,
	})
}

type submitRequest struct {
	EvaluationID domain.EvaluationID `json:"evaluation_id" validate:"required"`
	Answer       domain.Answer       `json:"answer" validate:"required"`
}

// SubmitEvaluation delivers a completed answer for an in_progress claim.
func (s *Server) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	if err := s.Queue.Submit(r.Context(), req.EvaluationID, req.Answer); err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluation_id": req.EvaluationID, "status": "completed"})
}

type releaseRequest struct {
	EvaluationID domain.EvaluationID `json:"evaluation_id" validate:"required"`
	MarkAsFailed bool                `json:"mark_as_failed"`
	Reason       string              `json:"reason"`
}

// ReleaseEvaluation abandons a claim.
func (s *Server) ReleaseEvaluation(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	if err := s.Queue.Release(r.Context(), req.EvaluationID, req.MarkAsFailed, req.Reason); err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluation_id": req.EvaluationID, "status": "released"})
}

type resultsRequest struct {
	AssistantName string            `json:"assistant_name" validate:"required"`
	PlanName      string            `json:"plan_name" validate:"required"`
	PromptIDs     []domain.PromptID `json:"prompt_ids" validate:"required,min=1"`
}

type resultItem struct {
	PromptID     domain.PromptID     `json:"prompt_id"`
	EvaluationID domain.EvaluationID `json:"evaluation_id"`
	CompletedAt  *time.Time          `json:"completed_at"`
	Answer       *domain.Answer      `json:"answer"`
}

// LatestResults returns the most recent completed evaluation per prompt.
func (s *Server) LatestResults(w http.ResponseWriter, r *http.Request) {
	var req resultsRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	latest, err := s.Queue.LatestResults(r.Context(), req.AssistantName, req.PlanName, req.PromptIDs)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	items := make([]resultItem, 0, len(latest))
	for pid, ev := range latest {
		items = append(items, resultItem{
			PromptID:     pid,
			EvaluationID: ev.ID,
			CompletedAt:  ev.CompletedAt,
			Answer:       ev.Answer,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

// --- execution queue ---

type requestFreshRequest struct {
	PromptIDs []domain.PromptID `json:"prompt_ids" validate:"required,min=1"`
}

// RequestFresh enqueues work for the current user and triggers a scraper batch
// for the newly queued prompts. A scrape trigger failure leaves the queue
// entries in place for human workers.
func (s *Server) RequestFresh(w http.ResponseWriter, r *http.Request) {
	var req requestFreshRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	userID := UserIDFrom(r.Context())
	res, batchID, err := s.Queue.Enqueue(r.Context(), req.PromptIDs, userID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	items := make([]usecase.EnqueueItem, 0, len(req.PromptIDs))
	queued := make(map[domain.PromptID]bool, len(res.Queued))
	for _, e := range res.Queued {
		queued[e.PromptID] = true
	}
	for _, pid := range req.PromptIDs {
		status := "already_pending"
		if queued[pid] {
			status = "queued"
		}
		items = append(items, usecase.EnqueueItem{PromptID: pid, Status: status})
	}

	scrapeBatchID := s.triggerScrape(r, res, userID)

	seconds := s.Wait.EstimateSeconds(res.PendingCount)
	writeJSON(w, http.StatusOK, map[string]any{
		"items":                items,
		"request_batch_id":     batchID,
		"scrape_batch_id":      scrapeBatchID,
		"pending_count":        res.PendingCount,
		"estimated_total_wait": s.Wait.Humanize(seconds),
		"estimated_wait_secs":  seconds,
	})
}

func (s *Server) triggerScrape(r *http.Request, res domain.EnqueueResult, userID domain.UserID) *string {
	if len(res.Queued) == 0 {
		return nil
	}
	ids := make([]domain.PromptID, 0, len(res.Queued))
	for _, e := range res.Queued {
		ids = append(ids, e.PromptID)
	}
	prompts, err := s.Prompts.GetByIDs(r.Context(), ids)
	if err != nil {
		obsctx.LoggerFromContext(r.Context()).Error("scrape trigger skipped, prompt load failed", "error", err)
		return nil
	}
	texts := make(map[domain.PromptID]string, len(prompts))
	for pid, p := range prompts {
		texts[pid] = p.Text
	}
	batchID, err := s.Batches.Register(r.Context(), userID, texts)
	if err != nil {
		obsctx.LoggerFromContext(r.Context()).Error("scrape trigger failed", "error", err)
		return nil
	}
	return &batchID
}

type queueStatusItem struct {
	PromptID             domain.PromptID    `json:"prompt_id"`
	Status               domain.QueueStatus `json:"status"`
	RequestedAt          time.Time          `json:"requested_at"`
	EstimatedWaitSeconds int                `json:"estimated_wait_seconds"`
	EstimatedWait        string             `json:"estimated_wait"`
}

// QueueStatus reports the user's queue interactions over the last day with
// wait estimates.
func (s *Server) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Queue.Status(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	items := make([]queueStatusItem, 0, len(status.Entries))
	for _, e := range status.Entries {
		secs := s.Wait.EstimateFor(e.Status, status.PendingCount)
		items = append(items, queueStatusItem{
			PromptID:             e.PromptID,
			Status:               e.Status,
			RequestedAt:          e.RequestedAt,
			EstimatedWaitSeconds: secs,
			EstimatedWait:        s.Wait.Humanize(secs),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "pending_count": status.PendingCount})
}

// CancelQueueItem cancels the user's pending entry for one prompt; 404 when
// nothing was cancelled.
func (s *Server) CancelQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "prompt_id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrInvalidArgument, nil)
		return
	}
	n, err := s.Queue.CancelPending(r.Context(), []domain.PromptID{domain.PromptID(id)}, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if n == 0 {
		writeError(w, r, domain.ErrNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": n})
}

type cancelBatchRequest struct {
	PromptIDs []domain.PromptID `json:"prompt_ids" validate:"required,min=1"`
}

// CancelQueueBatch cancels the user's pending entries for several prompts.
func (s *Server) CancelQueueBatch(w http.ResponseWriter, r *http.Request) {
	var req cancelBatchRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	n, err := s.Queue.CancelPending(r.Context(), req.PromptIDs, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": n})
}

// --- billing ---

type chargeRequest struct {
	EvaluationIDs []domain.EvaluationID `json:"evaluation_ids" validate:"required,min=1"`
}

// Charge runs the charge engine for the listed evaluations.
func (s *Server) Charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	res, err := s.Charges.Charge(r.Context(), UserIDFrom(r.Context()), req.EvaluationIDs)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"charged":           res.Charged,
		"skipped":           res.Skipped,
		"total_charged":     res.TotalCharged,
		"remaining_balance": res.RemainingBalance,
	})
}

// Balance reads the user's available balance.
func (s *Server) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.Charges.Balance(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// Transactions lists the balance audit log, newest first.
func (s *Server) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, r, domain.ErrInvalidArgument, nil)
			return
		}
		limit = n
	}
	txns, err := s.Charges.Transactions(r.Context(), UserIDFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// --- reports ---

type selectionPayload struct {
	PromptID     domain.PromptID      `json:"prompt_id" validate:"required"`
	EvaluationID *domain.EvaluationID `json:"evaluation_id"`
}

type generateRequest struct {
	Selections []selectionPayload `json:"selections"`
	Title      *string            `json:"title"`
}

// GenerateReport snapshots a group report. Omitted selections fall back to
// per-prompt defaults.
func (s *Server) GenerateReport(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrInvalidArgument, nil)
		return
	}
	var req generateRequest
	if details, derr := decodeAndValidate(r, &req); derr != nil {
		writeError(w, r, derr, details)
		return
	}
	selections := make([]domain.Selection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, domain.Selection{PromptID: sel.PromptID, EvaluationID: sel.EvaluationID})
	}
	useDefaults := len(selections) == 0

	report, items, err := s.Reports.Generate(r.Context(), domain.GroupID(groupID), UserIDFrom(r.Context()), selections, req.Title, useDefaults)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, reportPayload(report, items))
}

// CompareGroup returns the selection analysis plus brand changes.
func (s *Server) CompareGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrInvalidArgument, nil)
		return
	}
	cmp, err := s.Reports.Compare(r.Context(), domain.GroupID(groupID), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt_selections":          cmp.PromptSelections,
		"brand_changes":              cmp.BrandChanges,
		"can_generate":               cmp.CanGenerate,
		"generation_disabled_reason": cmp.GenerationDisabledReason,
	})
}

// GetReport reads one report with its items; scoped to the owner.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrInvalidArgument, nil)
		return
	}
	report, items, err := s.Reports.Get(r.Context(), domain.ReportID(id), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, reportPayload(report, items))
}

func reportPayload(report domain.GroupReport, items []domain.GroupReportItem) map[string]any {
	itemPayloads := make([]map[string]any, 0, len(items))
	for _, it := range items {
		itemPayloads = append(itemPayloads, map[string]any{
			"prompt_id":      it.PromptID,
			"evaluation_id":  it.EvaluationID,
			"status":         it.Status,
			"is_fresh":       it.IsFresh,
			"amount_charged": it.AmountCharged,
		})
	}
	return map[string]any{
		"report_id":         report.ID,
		"group_id":          report.GroupID,
		"title":             report.Title,
		"created_at":        report.CreatedAt,
		"total_prompts":     report.TotalPrompts,
		"prompts_with_data": report.PromptsWithData,
		"prompts_awaiting":  report.PromptsAwaiting,
		"total_cost":        report.TotalCost,
		"brand":             report.BrandSnapshot,
		"competitors":       report.CompetitorsSnapshot,
		"items":             itemPayloads,
	}
}

// --- prompt ingest ---

type ingestRequest struct {
	Texts   []string        `json:"texts" validate:"required,min=1,dive,min=1"`
	TopicID *int64          `json:"topic_id"`
	GroupID *domain.GroupID `json:"group_id"`
}

// IngestPrompts deduplicates and stores prompt texts, queueing each resulting
// prompt for evaluation.
func (s *Server) IngestPrompts(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	res, err := s.Ingest.Ingest(r.Context(), req.Texts, req.TopicID, req.GroupID, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created_count": res.CreatedCount,
		"reused_count":  res.ReusedCount,
		"prompt_ids":    res.PromptIDs,
		"request_id":    res.RequestID,
	})
}

// --- scraper webhook ---

// Webhook receives the scraper's asynchronous results for a batch.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	var items []usecase.WebhookItem
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 16<<20)).Decode(&items); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return
	}
	outcome, err := s.Batches.ProcessWebhook(r.Context(), batchID, items)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id":  batchID,
		"processed": outcome.Processed,
		"failed":    outcome.Failed,
		"status":    outcome.Status,
	})
}

// --- auth ---

type signupRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName *string `json:"full_name"`
}

// Signup registers an inactive user. Email delivery is out of scope; the
// verification token is returned so the caller's mailer can deliver it.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	user, token, err := s.Users.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":            user.ID,
		"verification_token": token,
	})
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// Verify redeems a verification token, activating the user.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	user, err := s.Users.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": user.ID, "active": user.IsActive})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges credentials for a signed bearer token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if details, err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err, details)
		return
	}
	user, err := s.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.Tokens.Issue(user.ID),
		"token_type":   "bearer",
	})
}
