package config

import (
	"os"
	"strconv"
	"time"
)

// Completion providers.
const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Completion service
	CompletionProvider    string
	GroqAPIKey            string
	GroqBaseURL           string
	GroqModel             string
	AnthropicAPIKey       string
	AnthropicModel        string
	CompletionMaxTokens   int
	CompletionTemperature float64

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Rate limiting of the AI routes (0 disables)
	RateLimitPerMinute int
	RateLimitBurst     int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
// API keys are not checked here; a missing key surfaces on the first
// completion call and is absorbed by the fallbacks.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CompletionProvider:    getEnv("COMPLETION_PROVIDER", ProviderGroq),
		GroqAPIKey:            getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:           getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:             getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		AnthropicAPIKey:       getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:        getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		CompletionMaxTokens:   getEnvInt("COMPLETION_MAX_TOKENS", 1024),
		CompletionTemperature: getEnvFloat("COMPLETION_TEMPERATURE", 0.3),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("COMPLETION_MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
