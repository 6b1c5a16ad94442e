package embedding_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/adapter/embedding"
	"github.com/rosklyar/prompts-volume/internal/domain"
	"github.com/rosklyar/prompts-volume/internal/domain/mocks"
)

func testVector(fill float32) []float32 {
	v := make([]float32, domain.EmbeddingDim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func newCacheFixture(t *testing.T) (*embedding.Cache, *mocks.MockEmbeddingService) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	inner := mocks.NewMockEmbeddingService(t)
	return embedding.NewCache(inner, rdb), inner
}

func TestCache_MissThenHit(t *testing.T) {
	cache, inner := newCacheFixture(t)

	inner.On("Encode", mock.Anything, []string{"how to x"}).
		Return([][]float32{testVector(0.5)}, nil).Once()

	got, err := cache.Encode(context.Background(), []string{"how to x"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, testVector(0.5), got[0])

	// Second call must be served entirely from redis.
	got, err = cache.Encode(context.Background(), []string{"how to x"})
	require.NoError(t, err)
	assert.Equal(t, testVector(0.5), got[0])
	inner.AssertNumberOfCalls(t, "Encode", 1)
}

func TestCache_PartialMissEncodesOnlyMisses(t *testing.T) {
	cache, inner := newCacheFixture(t)

	inner.On("Encode", mock.Anything, []string{"a"}).
		Return([][]float32{testVector(0.1)}, nil).Once()
	_, err := cache.Encode(context.Background(), []string{"a"})
	require.NoError(t, err)

	inner.On("Encode", mock.Anything, []string{"b"}).
		Return([][]float32{testVector(0.2)}, nil).Once()
	got, err := cache.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testVector(0.1), got[0])
	assert.Equal(t, testVector(0.2), got[1])
}

func TestCache_InnerErrorPropagates(t *testing.T) {
	cache, inner := newCacheFixture(t)

	inner.On("Encode", mock.Anything, []string{"a"}).
		Return(nil, domain.ErrUpstreamTimeout)

	_, err := cache.Encode(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}
