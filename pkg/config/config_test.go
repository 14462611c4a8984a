package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llm-requests", cfg.Rabbit.QueueName)
	assert.Equal(t, 10, cfg.Rabbit.ChannelCount)
	assert.True(t, cfg.Rabbit.AutomaticRecovery)
	assert.Equal(t, 60*time.Second, cfg.Rabbit.Heartbeat)
	assert.Equal(t, 5, cfg.Rabbit.Publisher.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Rabbit.Publisher.RetryBaseDelay)

	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Worker.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.LLM.OpenAI.Timeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RABBIT_HOST", "broker.internal")
	t.Setenv("RABBIT_CHANNEL_COUNT", "3")
	t.Setenv("RABBIT_AUTOMATIC_RECOVERY", "false")
	t.Setenv("RABBIT_PUBLISHER_MAX_ATTEMPTS", "2")
	t.Setenv("LLM_CLAUDE_API_KEY", "secret")
	t.Setenv("LLM_CLAUDE_HEADERS", "x-team:search,x-env:prod")
	t.Setenv("LLM_ALLOWED_MODELS", "gpt-4o,claude-3")
	t.Setenv("WORKER_RETRY_BASE_DELAY", "500ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "broker.internal", cfg.Rabbit.Host)
	assert.Equal(t, 3, cfg.Rabbit.ChannelCount)
	assert.False(t, cfg.Rabbit.AutomaticRecovery)
	assert.Equal(t, 2, cfg.Rabbit.Publisher.MaxAttempts)
	assert.Equal(t, "secret", cfg.LLM.Claude.APIKey)
	assert.Equal(t, map[string]string{"x-team": "search", "x-env": "prod"}, cfg.LLM.Claude.Headers)
	assert.Equal(t, []string{"gpt-4o", "claude-3"}, cfg.LLM.AllowedModels)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.RetryBaseDelay)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RABBIT_CHANNEL_COUNT", "0")
	t.Setenv("WORKER_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RABBIT_CHANNEL_COUNT")
	assert.Contains(t, err.Error(), "WORKER_MAX_ATTEMPTS")
}

func TestLoadRejectsUnparsableValues(t *testing.T) {
	t.Setenv("RABBIT_HEARTBEAT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
