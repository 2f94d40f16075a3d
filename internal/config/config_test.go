package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "recipeverse", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, int64(65536), cfg.Stripe.MaxWebhookBody)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "localhost:4317", cfg.Observability.OtelEndpoint)
	assert.True(t, cfg.Observability.OtelEnabled)
}

func TestLoadAuthDisabledOnlyInDevelopment(t *testing.T) {
	cases := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"Development", true},
		{"staging", false},
		{"test", false},
		{"production", false},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tc.env)
			t.Setenv("AUTH_DISABLED", "true")

			cfg := Load()

			assert.Equal(t, tc.want, cfg.AuthDisabled)
		})
	}
}

func TestLoadRateLimitEnabledByRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_GENERATE_RPS", "2.5")
	t.Setenv("RATE_LIMIT_GENERATE_BURST", "not-a-number")

	cfg := Load()

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.GenerateRate)
	assert.Equal(t, 5, cfg.RateLimit.GenerateBurst)
}

func TestGenerationConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("generation:\n  model: test-model\n  max_tokens: 256\n  temperature: 0.2\n  timeout: 5s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generation.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewGenerationConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "test-model", cfg.Model)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.SystemPrompt)
}

func TestValidateGenerationConfig(t *testing.T) {
	cfg := DefaultGenerationConfig()
	require.NoError(t, validateGenerationConfig(cfg))

	cfg.MaxTokens = 0
	assert.Error(t, validateGenerationConfig(cfg))

	cfg = DefaultGenerationConfig()
	cfg.Timeout = 0
	assert.Error(t, validateGenerationConfig(cfg))
}
