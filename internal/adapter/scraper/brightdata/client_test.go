package brightdata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/adapter/scraper/brightdata"
	"github.com/rosklyar/prompts-volume/internal/domain"
)

func testInputs() []domain.ScraperInput {
	return []domain.ScraperInput{
		{Prompt: "best crm for startups", Country: "US"},
		{Prompt: "crm pricing comparison", Country: "US"},
	}
}

func TestClient_Trigger(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	var gotQuery map[string]string
	var gotBody []domain.ScraperInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"snapshot_id": "s_abc"})
	}))
	defer srv.Close()

	c := brightdata.New(srv.URL, "tok-123", "gd_dataset", "https://api.example.com", "hook-secret", 5*time.Second)
	err := c.Trigger(context.Background(), "batch-1", testInputs())
	require.NoError(t, err)

	assert.Equal(t, "/datasets/v3/trigger", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "gd_dataset", gotQuery["dataset_id"])
	assert.Equal(t, "https://api.example.com/brightdata/webhook/batch-1", gotQuery["endpoint"])
	assert.Equal(t, "Basic hook-secret", gotQuery["auth_header"])
	assert.Len(t, gotBody, 2)
	assert.Equal(t, "best crm for startups", gotBody[0].Prompt)
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUpstreamAuth},
		{http.StatusForbidden, domain.ErrUpstreamAuth},
		{http.StatusTooManyRequests, domain.ErrUpstreamRateLimit},
		{http.StatusGatewayTimeout, domain.ErrUpstreamTimeout},
		{http.StatusInternalServerError, domain.ErrUpstreamUnreachable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := brightdata.New(srv.URL, "tok", "ds", "https://api.example.com", "sec", 5*time.Second)
		err := c.Trigger(context.Background(), "b", testInputs())
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestClient_TimeoutMapsToUpstreamTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := brightdata.New(srv.URL, "tok", "ds", "https://api.example.com", "sec", 20*time.Millisecond)
	err := c.Trigger(context.Background(), "b", testInputs())
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestClient_ConnectionRefusedMapsToUnreachable(t *testing.T) {
	t.Parallel()
	c := brightdata.New("http://127.0.0.1:1", "tok", "ds", "https://api.example.com", "sec", time.Second)
	err := c.Trigger(context.Background(), "b", testInputs())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}
