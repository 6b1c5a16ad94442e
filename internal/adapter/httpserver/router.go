package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
)

// RouterConfig carries the surface-level knobs the router needs.
type RouterConfig struct {
	CORSAllowOrigins string
	RateLimitPerMin  int
	WorkerTokens     []string
	WebhookSecret    string
	// Ready is the readiness probe; nil means always ready.
	Ready http.HandlerFunc
}

// Router assembles the full HTTP surface.
func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(AccessLog())
	r.Use(Recoverer())
	r.Use(SecurityHeaders)
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSAllowOrigins, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	ready := cfg.Ready
	if ready == nil {
		ready = func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		}
	}
	r.Get("/readyz", ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.Signup)
		r.Post("/verify", s.Verify)
		r.Post("/login", s.Login)
	})

	r.Route("/evaluations", func(r chi.Router) {
		r.Use(RequireWorker(cfg.WorkerTokens))
		r.Post("/poll", s.PollEvaluation)
		r.Post("/submit", s.SubmitEvaluation)
		r.Post("/release", s.ReleaseEvaluation)
		r.Post("/results", s.LatestResults)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Tokens.RequireUser)

		r.Route("/execution", func(r chi.Router) {
			r.Post("/request-fresh", s.RequestFresh)
			r.Get("/queue/status", s.QueueStatus)
			r.Delete("/queue/{prompt_id}", s.CancelQueueItem)
			r.Post("/queue/cancel", s.CancelQueueBatch)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/charge", s.Charge)
			r.Get("/balance", s.Balance)
			r.Get("/transactions", s.Transactions)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/groups/{id}/compare", s.CompareGroup)
			r.Post("/groups/{id}/generate", s.GenerateReport)
			r.Get("/{id}", s.GetReport)
		})

		r.Post("/prompts/ingest", s.IngestPrompts)
	})

	r.With(RequireWebhookSecret(cfg.WebhookSecret)).
		Post("/brightdata/webhook/{batch_id}", s.Webhook)

	return otelhttp.NewHandler(r, "http.server")
}
