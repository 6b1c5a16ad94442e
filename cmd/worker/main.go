// Command worker runs the result-ingest consumer: it reads parsed scraper
// results from Kafka and submits them through the evaluation lifecycle.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/app"
	"github.com/rosklyar/prompts-volume/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, closer, err := app.NewWorkerConsumer(ctx, cfg)
	if err != nil {
		slog.Error("worker assembly failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closer()

	slog.Info("result-ingest worker starting",
		slog.String("group", cfg.KafkaGroupID),
		slog.String("assistant", cfg.ScrapeAssistantName),
		slog.String("plan", cfg.ScrapePlanName))
	if err := consumer.Run(ctx); err != nil {
		slog.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
