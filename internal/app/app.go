// Package app assembles the server and worker processes from configuration:
// stores, brokers, adapters, services, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rosklyar/prompts-volume/internal/adapter/embedding"
	"github.com/rosklyar/prompts-volume/internal/adapter/httpserver"
	"github.com/rosklyar/prompts-volume/internal/adapter/queue/redpanda"
	"github.com/rosklyar/prompts-volume/internal/adapter/repo/postgres"
	"github.com/rosklyar/prompts-volume/internal/adapter/scraper/brightdata"
	"github.com/rosklyar/prompts-volume/internal/adapter/vector/qdrant"
	"github.com/rosklyar/prompts-volume/internal/config"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
	"github.com/rosklyar/prompts-volume/internal/seed"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

// Server is the fully wired HTTP process.
type Server struct {
	cfg config.Config

	promptsPool *pgxpool.Pool
	usersPool   *pgxpool.Pool
	evalsPool   *pgxpool.Pool
	rdb         *redis.Client
	sink        *redpanda.Sink

	handler http.Handler
}

// NewServer builds the server: connects the three stores, applies schemas and
// seed data, wires every adapter and service, and assembles the router.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	a := &Server{cfg: cfg}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	if a.promptsPool, err = postgres.NewPool(ctx, cfg.PromptsDBURL); err != nil {
		return nil, fmt.Errorf("op=app.prompts_db: %w", err)
	}
	if a.usersPool, err = postgres.NewPool(ctx, cfg.UsersDBURL); err != nil {
		return nil, fmt.Errorf("op=app.users_db: %w", err)
	}
	// Sharing the pool when both stores point at one database lets the billing
	// repo run debit and consumption in a single transaction.
	if cfg.EvalsDBURL == cfg.UsersDBURL {
		a.evalsPool = a.usersPool
	} else if a.evalsPool, err = postgres.NewPool(ctx, cfg.EvalsDBURL); err != nil {
		return nil, fmt.Errorf("op=app.evals_db: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, a.promptsPool, postgres.PromptsSchema()); err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, a.usersPool, postgres.UsersSchema()); err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, a.evalsPool, postgres.EvalsSchema()); err != nil {
		return nil, err
	}

	seedData, err := seed.Load(cfg.SeedDir)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(ctx, a.promptsPool, a.evalsPool, seedData); err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=app.redis: %w", err)
	}
	a.rdb = redis.NewClient(redisOpts)

	qdrantClient := qdrant.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	if err := qdrantClient.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	if a.sink, err = redpanda.NewSink(cfg.KafkaBrokers, cfg.OTELServiceName+"-sink"); err != nil {
		return nil, err
	}

	promptRepo := postgres.NewPromptRepo(a.promptsPool)
	userRepo := postgres.NewUserRepo(a.usersPool)
	billingRepo := postgres.NewBillingRepo(a.usersPool, a.evalsPool)
	queueRepo := postgres.NewQueueRepo(a.evalsPool, promptRepo)
	evalRepo := postgres.NewEvaluationRepo(a.evalsPool)
	reportRepo := postgres.NewReportRepo(a.evalsPool)
	batchRepo := postgres.NewBatchRepo(a.evalsPool)

	embedder := embedding.NewCache(embedding.NewClient(cfg.EmbeddingURL, cfg.EmbeddingTimeout), a.rdb)
	scraper := brightdata.New(cfg.BrightDataBaseURL, cfg.BrightDataToken, cfg.BrightDataDatasetID,
		cfg.WebhookBaseURL, cfg.WebhookBasicSecret, cfg.BrightDataTimeout)

	pricing := usecase.FixedPricing{Price: cfg.BillingPricePerEvaluation}
	queueSvc := usecase.NewQueueService(queueRepo, evalRepo, cfg.EvaluationTimeout())
	chargeSvc := usecase.NewChargeService(billingRepo, pricing)
	analyzer := usecase.NewSelectionAnalyzer(promptRepo, evalRepo, billingRepo, reportRepo, pricing, usecase.MostRecentSelection{})
	reportSvc := usecase.NewReportService(promptRepo, reportRepo, analyzer, chargeSvc)
	batchSvc := usecase.NewBatchService(usecase.NewBatchRegistry(cfg.BatchTTL()), batchRepo, scraper, a.sink, cfg.BrightDataDefaultCountry)
	userSvc := usecase.NewUserService(userRepo, billingRepo, cfg.BcryptCost, cfg.VerifyTokenTTL,
		cfg.BillingSignupBonusAmount, cfg.BillingSignupBonusExpiry, cfg.BillingMaxSignupBonuses)
	ingestSvc := usecase.NewIngestService(embedder, qdrantClient, promptRepo, queueRepo, cfg.DuplicateThreshold)
	wait := usecase.NewWaitEstimator(cfg.QueueWaitBaseSeconds, cfg.QueueWaitPerItemSeconds, cfg.QueueWaitInProgressSecs)

	srv := httpserver.NewServer(queueSvc, chargeSvc, reportSvc, batchSvc, userSvc, ingestSvc, wait, promptRepo,
		httpserver.NewTokenManager(cfg.AuthSecret, cfg.AuthTokenTTL))

	ready := ReadyHandler(
		PingCheck("prompts_db", a.promptsPool),
		PingCheck("users_db", a.usersPool),
		PingCheck("evals_db", a.evalsPool),
		Check{Name: "redis", Fn: func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }},
		Check{Name: "qdrant", Fn: qdrantClient.Healthz},
		PingCheck("kafka", a.sink),
	)
	a.handler = srv.Router(httpserver.RouterConfig{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RateLimitPerMin:  cfg.RateLimitPerMin,
		WorkerTokens:     cfg.WorkerTokens,
		WebhookSecret:    cfg.WebhookBasicSecret,
		Ready:            ready,
	})

	ok = true
	return a, nil
}

// Handler exposes the assembled HTTP surface.
func (a *Server) Handler() http.Handler { return a.handler }

// Run serves HTTP until ctx is cancelled, then drains connections within the
// configured shutdown timeout.
func (a *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
		IdleTimeout:  a.cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		obsctx.LoggerFromContext(ctx).Info("http server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("op=app.serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("op=app.shutdown: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("http server stopped")
	return nil
}

// Close releases every connection the server holds. Safe on a partially
// constructed server.
func (a *Server) Close() {
	if a.sink != nil {
		_ = a.sink.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	pools := []*pgxpool.Pool{a.promptsPool, a.usersPool}
	if a.evalsPool != a.usersPool {
		pools = append(pools, a.evalsPool)
	}
	for _, p := range pools {
		if p != nil {
			p.Close()
		}
	}
}

// NewWorkerConsumer builds the result-ingest consumer over the same stores the
// server uses. The caller owns the pools' lifecycle via the returned closer.
func NewWorkerConsumer(ctx context.Context, cfg config.Config) (*redpanda.Consumer, func(), error) {
	promptsPool, err := postgres.NewPool(ctx, cfg.PromptsDBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("op=worker.prompts_db: %w", err)
	}
	evalsPool, err := postgres.NewPool(ctx, cfg.EvalsDBURL)
	if err != nil {
		promptsPool.Close()
		return nil, nil, fmt.Errorf("op=worker.evals_db: %w", err)
	}

	promptRepo := postgres.NewPromptRepo(promptsPool)
	queueRepo := postgres.NewQueueRepo(evalsPool, promptRepo)
	evalRepo := postgres.NewEvaluationRepo(evalsPool)
	queueSvc := usecase.NewQueueService(queueRepo, evalRepo, cfg.EvaluationTimeout())

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.OTELServiceName+"-worker",
		queueSvc, cfg.ScrapeAssistantName, cfg.ScrapePlanName)
	if err != nil {
		promptsPool.Close()
		evalsPool.Close()
		return nil, nil, err
	}

	closer := func() {
		_ = consumer.Close()
		promptsPool.Close()
		evalsPool.Close()
	}
	// Claiming needs the schemas in place even when the worker starts first.
	if err := postgres.EnsureSchema(ctx, promptsPool, postgres.PromptsSchema()); err != nil {
		closer()
		return nil, nil, err
	}
	if err := postgres.EnsureSchema(ctx, evalsPool, postgres.EvalsSchema()); err != nil {
		closer()
		return nil, nil, err
	}
	return consumer, closer, nil
}
