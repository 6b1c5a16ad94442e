package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/rosklyar/prompts-volume/internal/adapter/observability"
	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// ResultSubmitter drives the evaluation lifecycle for a consumed result.
// usecase.QueueService satisfies it.
type ResultSubmitter interface {
	SubmitScraped(ctx context.Context, assistantName, planName string, r domain.ParsedResult) (bool, error)
}

// Consumer reads parsed scraper results from the results topic and submits
// them through the evaluation lifecycle under the scraper's plan identity.
type Consumer struct {
	session       *kgo.GroupTransactSession
	submitter     ResultSubmitter
	assistantName string
	planName      string
	groupID       string
	topic         string
}

// NewConsumer constructs a Consumer with read-committed isolation so aborted
// sink transactions are never observed.
func NewConsumer(brokers []string, groupID, transactionalID string, submitter ResultSubmitter, assistantName, planName string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.consumer: no seed brokers")
	}
	if groupID == "" {
		return nil, fmt.Errorf("op=redpanda.consumer: group id required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.consumer: %w", err)
	}
	defer tempClient.Close()
	if err := createTopicIfNotExists(ctx, tempClient, TopicResults, 4, 1); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("results topic creation failed, assuming it exists", "error", err)
	}

	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))
	session, err := kgo.NewGroupTransactSession(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(TopicResults),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.consumer: %w", err)
	}

	return &Consumer{
		session:       session,
		submitter:     submitter,
		assistantName: assistantName,
		planName:      planName,
		groupID:       groupID,
		topic:         TopicResults,
	}, nil
}

// Run polls and processes records until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	lg := obsctx.LoggerFromContext(ctx)
	lg.Info("result consumer started", "topic", c.topic, "group_id", c.groupID)
	for {
		select {
		case <-ctx.Done():
			lg.Info("result consumer stopping")
			return ctx.Err()
		default:
		}

		fetches := c.session.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lg.Error("fetch error", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
			}
			time.Sleep(2 * time.Second)
			continue
		}
		fetches.EachRecord(func(record *kgo.Record) {
			c.processRecord(ctx, record)
		})
	}
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	tracer := otel.Tracer("queue.consumer")
	ctx, span := tracer.Start(ctx, "ProcessScrapedResult")
	defer span.End()

	lg := obsctx.LoggerFromContext(ctx).With(
		"topic", record.Topic, "partition", record.Partition, "offset", record.Offset)

	var result domain.ParsedResult
	if err := json.Unmarshal(record.Value, &result); err != nil {
		// Malformed records are logged and skipped; re-delivery cannot fix them.
		lg.Error("undecodable result record", "error", err)
		observability.ResultIngestTotal.WithLabelValues("decode_error").Inc()
		return
	}
	for _, h := range record.Headers {
		if h.Key == "batch_id" {
			lg = lg.With("batch_id", string(h.Value))
			break
		}
	}

	submitted, err := c.submitter.SubmitScraped(ctx, c.assistantName, c.planName, result)
	if err != nil {
		lg.Error("scraped result submit failed", "prompt_id", result.PromptID, "error", err)
		observability.ResultIngestTotal.WithLabelValues("error").Inc()
		return
	}
	if !submitted {
		observability.ResultIngestTotal.WithLabelValues("dropped").Inc()
		return
	}
	lg.Info("scraped result submitted", "prompt_id", result.PromptID)
	observability.ResultIngestTotal.WithLabelValues("submitted").Inc()
}

// Close closes the consumer session.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	return nil
}
