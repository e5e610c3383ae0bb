package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("STORY_TEST_SET", "from-env")
	t.Setenv("STORY_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${STORY_TEST_SET}", "key: from-env"},
		{"key: ${STORY_TEST_SET:fallback}", "key: from-env"},
		{"key: ${STORY_TEST_UNSET:fallback}", "key: fallback"},
		{"key: ${STORY_TEST_UNSET:}", "key: "},
		{"key: ${STORY_TEST_EMPTY:fallback}", "key: "},
		{"key: ${STORY_TEST_UNSET}", "key: ${STORY_TEST_UNSET}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnv(tt.in), tt.in)
	}
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadFrom_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORY_TEST_TOGETHER_KEY", "tg-key")

	writeConfig(t, dir, "config.yaml", `
app:
  name: storywriter-api
server:
  http:
    port: 9090
providers:
  together:
    api_key: ${STORY_TEST_TOGETHER_KEY}
security:
  jwt:
    secret: ${STORY_TEST_JWT_SECRET:dev-secret}
`)
	writeConfig(t, dir, "config.test.yaml", `
security:
  rate_limit:
    requests_per_window: 3
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, "tg-key", cfg.Providers.Together.APIKey)
	assert.Equal(t, "dev-secret", cfg.Security.JWT.Secret)
	assert.Equal(t, 3, cfg.Security.RateLimit.RequestsPerWindow)

	// 未在文件中出现的键取默认值
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.Window)
	assert.Equal(t, 2000, cfg.Generation.DefaultMaxTokens)
	assert.InDelta(t, 0.7, cfg.Generation.DefaultTemperature, 1e-9)
	assert.Equal(t, "https://api.elevenlabs.io/v1", cfg.Providers.ElevenLabs.BaseURL)
	assert.Equal(t, 10*time.Minute, cfg.Providers.ElevenLabs.VoicesTTL)
	assert.Equal(t, "story_generator_v1", cfg.Generation.PromptID)
	assert.True(t, cfg.Cache.Redis.Enabled)
}

func TestLoadFrom_MissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}
