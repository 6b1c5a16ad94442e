package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/domain"
	"github.com/rosklyar/prompts-volume/internal/domain/mocks"
	"github.com/rosklyar/prompts-volume/internal/usecase"
)

func vector(fill float32) []float32 {
	v := make([]float32, domain.EmbeddingDim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestIngest_ReusesNearDuplicates(t *testing.T) {
	t.Parallel()
	embed := mocks.NewMockEmbeddingService(t)
	index := mocks.NewMockNearestNeighborIndex(t)
	prompts := mocks.NewMockPromptRepository(t)
	queue := mocks.NewMockQueueRepository(t)
	svc := usecase.NewIngestService(embed, index, prompts, queue, 0.995)

	texts := []string{"how to x", "compare y"}
	embed.On("Encode", mock.Anything, texts).Return([][]float32{vector(0.1), vector(0.2)}, nil)
	// First text is a near-duplicate of prompt 7; second is new.
	index.On("FindNearest", mock.Anything, vector(0.1), 1).
		Return([]domain.NNMatch{{PromptID: 7, Score: 0.999}}, nil)
	index.On("FindNearest", mock.Anything, vector(0.2), 1).
		Return([]domain.NNMatch{{PromptID: 3, Score: 0.42}}, nil)
	prompts.On("Insert", mock.Anything, "compare y", vector(0.2), (*int64)(nil), mock.Anything).
		Return(domain.PromptID(8), nil)
	index.On("Upsert", mock.Anything, domain.PromptID(8), vector(0.2), "compare y").Return(nil)
	queue.On("InsertPending", mock.Anything, domain.PromptID(7), user, mock.Anything).
		Return(domain.QueueEntry{}, false, nil)
	queue.On("InsertPending", mock.Anything, domain.PromptID(8), user, mock.Anything).
		Return(domain.QueueEntry{ID: 2, PromptID: 8}, true, nil)

	res, err := svc.Ingest(context.Background(), texts, nil, nil, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CreatedCount)
	assert.Equal(t, 1, res.ReusedCount)
	assert.Equal(t, []domain.PromptID{7, 8}, res.PromptIDs)
	assert.NotEmpty(t, res.RequestID)
}

func TestIngest_BindsToGroup(t *testing.T) {
	t.Parallel()
	embed := mocks.NewMockEmbeddingService(t)
	index := mocks.NewMockNearestNeighborIndex(t)
	prompts := mocks.NewMockPromptRepository(t)
	queue := mocks.NewMockQueueRepository(t)
	svc := usecase.NewIngestService(embed, index, prompts, queue, 0.995)
	groupID := domain.GroupID(5)

	embed.On("Encode", mock.Anything, []string{"how to x"}).Return([][]float32{vector(0.1)}, nil)
	index.On("FindNearest", mock.Anything, vector(0.1), 1).Return(nil, nil)
	prompts.On("Insert", mock.Anything, "how to x", vector(0.1), (*int64)(nil), mock.Anything).
		Return(domain.PromptID(9), nil)
	index.On("Upsert", mock.Anything, domain.PromptID(9), vector(0.1), "how to x").Return(nil)
	queue.On("InsertPending", mock.Anything, domain.PromptID(9), user, mock.Anything).
		Return(domain.QueueEntry{ID: 3, PromptID: 9}, true, nil)
	prompts.On("BindToGroup", mock.Anything, groupID, domain.PromptID(9)).Return(nil)

	res, err := svc.Ingest(context.Background(), []string{"how to x"}, nil, &groupID, user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CreatedCount)
}

func TestIngest_EmptyInputRejected(t *testing.T) {
	t.Parallel()
	svc := usecase.NewIngestService(mocks.NewMockEmbeddingService(t), mocks.NewMockNearestNeighborIndex(t), mocks.NewMockPromptRepository(t), mocks.NewMockQueueRepository(t), 0.995)

	_, err := svc.Ingest(context.Background(), nil, nil, nil, user)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
