// Package redpanda carries parsed scraper results from the webhook intake to
// the result-ingest worker over a Kafka topic, with transactional producing
// and read-committed consuming for exactly-once delivery.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// TopicResults is the Kafka topic for parsed scraper results.
const TopicResults = "scrape-results"

// Sink is a transactional producer implementing domain.ResultSink.
type Sink struct {
	client *kgo.Client
	topic  string
	// Transactions on one producer must not interleave.
	txnMu chan struct{}
}

// NewSink constructs a Sink and ensures the results topic exists.
func NewSink(brokers []string, transactionalID string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.sink: no seed brokers")
	}
	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.sink: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, client, TopicResults, 4, 1); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("results topic creation failed, assuming it exists", "error", err)
	}

	return &Sink{client: client, topic: TopicResults, txnMu: make(chan struct{}, 1)}, nil
}

// Publish produces one parsed result inside a Kafka transaction. The prompt id
// keys the record so results for one prompt stay ordered.
func (s *Sink) Publish(ctx context.Context, batchID string, r domain.ParsedResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}

	select {
	case s.txnMu <- struct{}{}:
		defer func() { <-s.txnMu }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.client.BeginTransaction(); err != nil {
		return fmt.Errorf("op=redpanda.publish.begin: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(fmt.Sprintf("%d", r.PromptID)),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "batch_id", Value: []byte(batchID)},
		},
	}
	promise := kgo.AbortingFirstErrPromise(s.client)
	s.client.Produce(ctx, record, promise.Promise())
	if err := promise.Err(); err != nil {
		if abortErr := s.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			obsctx.LoggerFromContext(ctx).Error("abort transaction failed", "error", abortErr)
		}
		return fmt.Errorf("op=redpanda.publish.produce: %w", err)
	}

	if err := s.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return fmt.Errorf("op=redpanda.publish.commit: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("result published",
		"batch_id", batchID, "prompt_id", r.PromptID, "topic", s.topic)
	return nil
}

// Ping verifies broker connectivity.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the underlying client.
func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
