package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosklyar/prompts-volume/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0.01, cfg.BillingPricePerEvaluation)
	assert.Equal(t, 2*time.Hour, cfg.EvaluationTimeout())
	assert.Equal(t, 24*time.Hour, cfg.BatchTTL())
	assert.InDelta(t, 0.995, float64(cfg.DuplicateThreshold), 1e-6)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BILLING_PRICE_PER_EVALUATION", "0.05")
	t.Setenv("EVALUATION_TIMEOUT_HOURS", "4")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("WORKER_TOKENS", "tok1,tok2")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.BillingPricePerEvaluation)
	assert.Equal(t, 4*time.Hour, cfg.EvaluationTimeout())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"tok1", "tok2"}, cfg.WorkerTokens)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
	assert.False(t, cfg.IsTest())
}
