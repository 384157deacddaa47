package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/taiwa/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/conversas", cfg.ArchiveDir)
	assert.Equal(t, "rules", cfg.ResponderBackend)
	assert.Equal(t, 30*time.Second, cfg.ResponderLoadTimeout)
	assert.True(t, cfg.HistoryDedup)
	assert.Equal(t, 0, cfg.EvictLimit)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TAIWA_PORT", "9999")
	t.Setenv("TAIWA_HISTORY_DEDUP", "false")
	t.Setenv("TAIWA_RATE_LIMIT_RPS", "2.5")
	t.Setenv("TAIWA_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TAIWA_RESPONDER_LOAD_TIMEOUT", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.False(t, cfg.HistoryDedup)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.ResponderLoadTimeout)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("TAIWA_PORT", "not-a-number")
	t.Setenv("TAIWA_RATE_LIMIT_RPS", "fast")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, float64(10), cfg.RateLimitRPS)
}

func TestValidate_OpenAIBackendRequiresKey(t *testing.T) {
	t.Setenv("TAIWA_RESPONDER_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("TAIWA_RESPONDER_BACKEND", "markov")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAIWA_RESPONDER_BACKEND")
}

func TestValidate_RejectsBadPort(t *testing.T) {
	t.Setenv("TAIWA_PORT", "70000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAIWA_PORT")
}
