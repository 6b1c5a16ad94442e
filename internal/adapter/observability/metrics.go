package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	QueuePollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_polls_total",
			Help: "Total number of worker polls by outcome (claimed|empty|error)",
		},
		[]string{"outcome"},
	)
	QueuePendingDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_pending_depth",
			Help: "Number of pending execution queue entries at last observation",
		},
	)
	QueueStaleReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_stale_reclaimed_total",
			Help: "Total number of stale in_progress claims reset to pending",
		},
	)
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of evaluations reaching a terminal state",
		},
		[]string{"status"},
	)

	ChargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charges_total",
			Help: "Total number of charge calls by outcome (charged|empty|error)",
		},
		[]string{"outcome"},
	)
	ChargedAmountTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_charged_amount_total",
			Help: "Cumulative amount debited by the charge engine",
		},
	)

	ReportsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Total number of group reports generated",
		},
	)

	WebhookItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_items_total",
			Help: "Total number of scraper webhook items by outcome (processed|unmatched|publish_error)",
		},
		[]string{"outcome"},
	)

	ResultIngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_ingest_total",
			Help: "Total number of consumed scraper results by outcome (submitted|dropped|decode_error|error)",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers all Prometheus metrics once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(QueuePollsTotal)
	prometheus.MustRegister(QueuePendingDepth)
	prometheus.MustRegister(QueueStaleReclaimedTotal)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(ChargesTotal)
	prometheus.MustRegister(ChargedAmountTotal)
	prometheus.MustRegister(ReportsGeneratedTotal)
	prometheus.MustRegister(WebhookItemsTotal)
	prometheus.MustRegister(ResultIngestTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}
