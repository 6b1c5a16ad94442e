package embedding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/adapter/embedding"
	"github.com/rosklyar/prompts-volume/internal/domain"
)

func TestClient_Encode(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vectors := make([][]float32, len(req.Texts))
		for i := range vectors {
			vectors[i] = make([]float32, domain.EmbeddingDim)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"vectors": vectors})
	}))
	defer srv.Close()

	c := embedding.NewClient(srv.URL, 5*time.Second)
	got, err := c.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0], domain.EmbeddingDim)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"vectors": [][]float32{make([]float32, domain.EmbeddingDim)}})
	}))
	defer srv.Close()

	c := embedding.NewClient(srv.URL, 5*time.Second)
	got, err := c.Encode(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestClient_BadRequestIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := embedding.NewClient(srv.URL, 5*time.Second)
	_, err := c.Encode(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DimensionMismatchRejected(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"vectors": [][]float32{{0.1, 0.2}}})
	}))
	defer srv.Close()

	c := embedding.NewClient(srv.URL, 5*time.Second)
	_, err := c.Encode(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrInternal)
}
