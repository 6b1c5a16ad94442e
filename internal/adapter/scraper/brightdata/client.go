// Package brightdata triggers BrightData dataset scrapes and maps provider
// failures onto the upstream error taxonomy.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rosklyar/prompts-volume/internal/domain"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// Client implements domain.ScraperClient against the BrightData trigger API.
type Client struct {
	baseURL        string
	token          string
	datasetID      string
	webhookBaseURL string
	webhookSecret  string
	httpClient     *http.Client
}

// New constructs a BrightData client. webhookBaseURL is this service's public
// base; the per-batch callback path is appended at trigger time.
func New(baseURL, token, datasetID, webhookBaseURL, webhookSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		token:          token,
		datasetID:      datasetID,
		webhookBaseURL: webhookBaseURL,
		webhookSecret:  webhookSecret,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Trigger POSTs the batch inputs to the provider. The webhook endpoint and its
// Basic auth header travel as query parameters per the provider's contract.
func (c *Client) Trigger(ctx context.Context, batchID string, inputs []domain.ScraperInput) error {
	body, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("op=brightdata.trigger: %w", err)
	}

	q := url.Values{}
	q.Set("dataset_id", c.datasetID)
	q.Set("endpoint", fmt.Sprintf("%s/brightdata/webhook/%s", c.webhookBaseURL, batchID))
	q.Set("auth_header", "Basic "+c.webhookSecret)
	q.Set("format", "json")
	q.Set("uncompressed_webhook", "true")
	endpoint := fmt.Sprintf("%s/datasets/v3/trigger?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("op=brightdata.trigger: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("op=brightdata.trigger: status %d: %w", resp.StatusCode, domain.ErrUpstreamAuth)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("op=brightdata.trigger: %w", domain.ErrUpstreamRateLimit)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("op=brightdata.trigger: %w", domain.ErrUpstreamTimeout)
	default:
		return fmt.Errorf("op=brightdata.trigger: status %d: %w", resp.StatusCode, domain.ErrUpstreamUnreachable)
	}

	var out struct {
		SnapshotID string `json:"snapshot_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	obsctx.LoggerFromContext(ctx).Info("brightdata triggered",
		"batch_id", batchID, "inputs", len(inputs), "snapshot_id", out.SnapshotID)
	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("op=brightdata.trigger: %w", domain.ErrUpstreamTimeout)
	}
	return fmt.Errorf("op=brightdata.trigger: %v: %w", err, domain.ErrUpstreamUnreachable)
}
