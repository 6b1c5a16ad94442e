package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

type fakeSubmitter struct {
	calls     []domain.ParsedResult
	submitted bool
	err       error
}

func (f *fakeSubmitter) SubmitScraped(_ context.Context, _, _ string, r domain.ParsedResult) (bool, error) {
	f.calls = append(f.calls, r)
	return f.submitted, f.err
}

func resultRecord(t *testing.T, r domain.ParsedResult, batchID string) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return &kgo.Record{
		Topic:   TopicResults,
		Value:   b,
		Headers: []kgo.RecordHeader{{Key: "batch_id", Value: []byte(batchID)}},
	}
}

func TestConsumer_ProcessRecord(t *testing.T) {
	sub := &fakeSubmitter{submitted: true}
	c := &Consumer{submitter: sub, assistantName: "chatgpt", planName: "free", topic: TopicResults}

	result := domain.ParsedResult{
		PromptID:   7,
		AnswerText: "the answer",
		Citations:  []domain.Citation{{URL: "https://example.com"}},
		Model:      "gpt-x",
		Timestamp:  time.Now().UTC(),
	}
	c.processRecord(context.Background(), resultRecord(t, result, "batch-1"))

	require.Len(t, sub.calls, 1)
	assert.Equal(t, domain.PromptID(7), sub.calls[0].PromptID)
	assert.Equal(t, "the answer", sub.calls[0].AnswerText)
}

func TestConsumer_ProcessRecord_MalformedSkipped(t *testing.T) {
	sub := &fakeSubmitter{}
	c := &Consumer{submitter: sub, topic: TopicResults}

	c.processRecord(context.Background(), &kgo.Record{Topic: TopicResults, Value: []byte("{not json")})

	assert.Empty(t, sub.calls)
}

func TestConsumer_ProcessRecord_SubmitErrorDoesNotPanic(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("db down")}
	c := &Consumer{submitter: sub, assistantName: "chatgpt", planName: "free", topic: TopicResults}

	c.processRecord(context.Background(), resultRecord(t, domain.ParsedResult{PromptID: 1}, "b"))

	require.Len(t, sub.calls, 1)
}
