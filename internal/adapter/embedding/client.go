// Package embedding provides the external embedding service client plus a
// redis-backed cache decorator.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// Client calls the external embedding model service. The model itself is a
// black box; the only contract is texts in, fixed-width vectors out.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetry   time.Duration
}

// NewClient constructs an embedding client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetry:   15 * time.Second,
	}
}

type encodeRequest struct {
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Encode embeds all texts in one request, retrying transient failures with
// exponential backoff. 4xx responses are permanent.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(encodeRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("op=embedding.encode: %w", err)
	}

	var vectors [][]float32
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("embedding service status %d: %s", resp.StatusCode, b))
		default:
			return fmt.Errorf("embedding service status %d", resp.StatusCode)
		}

		var out encodeResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("embedding decode: %w", err))
		}
		vectors = out.Vectors
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(c.maxRetry)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("op=embedding.encode: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("op=embedding.encode: got %d vectors for %d texts: %w", len(vectors), len(texts), domain.ErrInternal)
	}
	for i, v := range vectors {
		if len(v) != domain.EmbeddingDim {
			return nil, fmt.Errorf("op=embedding.encode: vector %d has dim %d: %w", i, len(v), domain.ErrInternal)
		}
	}
	return vectors, nil
}
