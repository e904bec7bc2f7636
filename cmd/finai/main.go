package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/config"
	"github.com/boddenberg/fin-ai-bfa-go/internal/handler"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/client"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"
	"github.com/boddenberg/fin-ai-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "finai")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("completion_provider", cfg.CompletionProvider),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finai")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	policy := resilience.Policy{
		Config: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		Breaker:  resilience.NewCircuitBreaker("completion"),
		Bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
	}

	// --- Completion client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var completer port.Completer
	switch cfg.CompletionProvider {
	case config.ProviderAnthropic:
		completer = client.NewAnthropicClient(httpClient, client.AnthropicOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			MaxTokens:   cfg.CompletionMaxTokens,
			Temperature: cfg.CompletionTemperature,
		}, policy)
	default:
		if cfg.CompletionProvider != config.ProviderGroq {
			logger.Warn("unknown completion provider, using groq", zap.String("provider", cfg.CompletionProvider))
		}
		completer = client.NewGroqClient(httpClient, client.GroqOptions{
			BaseURL:     cfg.GroqBaseURL,
			APIKey:      cfg.GroqAPIKey,
			Model:       cfg.GroqModel,
			MaxTokens:   cfg.CompletionMaxTokens,
			Temperature: cfg.CompletionTemperature,
		}, policy)
	}

	provider := cfg.CompletionProvider
	if p, ok := completer.(port.Provider); ok {
		provider = p.Provider()
	}
	logger.Info("completion client ready", zap.String("provider", provider))

	// --- Services ---
	agent := service.NewDefaultMasterAgent(completer, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(agent, handler.Options{
		Provider:           provider,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 4*cfg.HTTPTimeout + 10*time.Second, // up to three sequential completion calls per request
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
