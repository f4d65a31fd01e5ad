package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server and engine configuration
type Config struct {
	Port           int
	RedisURL       string
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	AllowedOrigins []string
	LogLevel       string

	// GeminiAPIKey may be empty; connecting without it fails with a config error.
	GeminiAPIKey   string
	LiveModel      string
	TranslateModel string
	VoiceName      string

	DefaultLanguages [2]string
	DebounceDelay    time.Duration
	FrameDuration    time.Duration
	FrameQueueSize   int // Microphone frames buffered ahead of the transport
	MaxTurnChars     int // Accumulated transcript cap per turn, 0 disables
	WarningTTL       time.Duration
}

const (
	DefaultLiveModel      = "models/gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultTranslateModel = "gemini-3-flash-preview"
)

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Port:             8080,
		RedisURL:         "localhost:6379",
		MaxSessions:      100,
		SessionTimeout:   30 * time.Minute,
		AllowedOrigins:   []string{"*"},
		LogLevel:         "info",
		LiveModel:        DefaultLiveModel,
		TranslateModel:   DefaultTranslateModel,
		VoiceName:        "Kore",
		DefaultLanguages: [2]string{"en-US", "es-ES"},
		DebounceDelay:    1000 * time.Millisecond,
		FrameDuration:    200 * time.Millisecond,
		FrameQueueSize:   32,
		MaxTurnChars:     8000,
		WarningTTL:       4 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := Default()
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if err := intEnv("PORT", func(v int) { config.Port = v }); err != nil {
		return nil, err
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	if err := intEnv("MAX_SESSIONS", func(v int) { config.MaxSessions = v }); err != nil {
		return nil, err
	}

	// SESSION_TIMEOUT is in minutes
	if err := intEnv("SESSION_TIMEOUT", func(v int) { config.SessionTimeout = time.Duration(v) * time.Minute }); err != nil {
		return nil, err
	}

	// ALLOWED_ORIGINS is comma-separated
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if model := os.Getenv("LIVE_MODEL"); model != "" {
		config.LiveModel = model
	}
	if model := os.Getenv("TRANSLATE_MODEL"); model != "" {
		config.TranslateModel = model
	}
	if voice := os.Getenv("VOICE_NAME"); voice != "" {
		config.VoiceName = voice
	}

	// DEFAULT_LANGUAGES is "first,second"
	if langs := os.Getenv("DEFAULT_LANGUAGES"); langs != "" {
		parts := strings.Split(langs, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid DEFAULT_LANGUAGES: want two comma-separated codes, got %q", langs)
		}
		config.DefaultLanguages = [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
	}

	if err := intEnv("DEBOUNCE_MS", func(v int) { config.DebounceDelay = time.Duration(v) * time.Millisecond }); err != nil {
		return nil, err
	}
	if err := intEnv("FRAME_MS", func(v int) { config.FrameDuration = time.Duration(v) * time.Millisecond }); err != nil {
		return nil, err
	}
	if err := intEnv("FRAME_QUEUE_SIZE", func(v int) { config.FrameQueueSize = v }); err != nil {
		return nil, err
	}
	if err := intEnv("MAX_TURN_CHARS", func(v int) { config.MaxTurnChars = v }); err != nil {
		return nil, err
	}
	// WARNING_TTL is in seconds
	if err := intEnv("WARNING_TTL", func(v int) { config.WarningTTL = time.Duration(v) * time.Second }); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be at least 1, got %d", c.MaxSessions)
	}
	if c.DebounceDelay <= 0 {
		return fmt.Errorf("debounce delay must be positive, got %s", c.DebounceDelay)
	}
	if c.FrameDuration < 100*time.Millisecond || c.FrameDuration > 250*time.Millisecond {
		return fmt.Errorf("frame duration must be between 100ms and 250ms, got %s", c.FrameDuration)
	}
	if c.FrameQueueSize < 1 {
		return fmt.Errorf("frame queue size must be at least 1, got %d", c.FrameQueueSize)
	}
	if c.MaxTurnChars < 0 {
		return fmt.Errorf("max turn chars cannot be negative, got %d", c.MaxTurnChars)
	}
	if c.WarningTTL <= 0 {
		return fmt.Errorf("warning ttl must be positive, got %s", c.WarningTTL)
	}
	if c.DefaultLanguages[0] == c.DefaultLanguages[1] {
		return fmt.Errorf("default languages must differ, got %q twice", c.DefaultLanguages[0])
	}
	return nil
}

func intEnv(name string, set func(int)) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	set(v)
	return nil
}
