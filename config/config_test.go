package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.GeminiAPIKey, "missing key is not a load error")
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Second, cfg.DebounceDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.FrameDuration)
	assert.Equal(t, [2]string{"en-US", "es-ES"}, cfg.DefaultLanguages)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DEBOUNCE_MS", "500")
	t.Setenv("FRAME_MS", "100")
	t.Setenv("DEFAULT_LANGUAGES", "fr-FR, ja-JP")
	t.Setenv("WARNING_TTL", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.FrameDuration)
	assert.Equal(t, [2]string{"fr-FR", "ja-JP"}, cfg.DefaultLanguages)
	assert.Equal(t, 10*time.Second, cfg.WarningTTL)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric port", "PORT", "http"},
		{"frame too long", "FRAME_MS", "500"},
		{"frame too short", "FRAME_MS", "20"},
		{"zero queue", "FRAME_QUEUE_SIZE", "0"},
		{"one language", "DEFAULT_LANGUAGES", "en-US"},
		{"same languages", "DEFAULT_LANGUAGES", "en-US,en-US"},
		{"negative turn cap", "MAX_TURN_CHARS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
