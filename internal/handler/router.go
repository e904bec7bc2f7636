package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options carries the router settings that do not come from the services.
type Options struct {
	// Provider names the completion backend reported by /healthz.
	Provider string

	// RateLimitPerMinute caps AI requests per client IP; 0 disables it.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(agent *service.MasterAgent, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/", rootHandler())
	r.Get("/healthz", healthzHandler(opts.Provider))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/metrics/completions", completionMetricsHandler(metrics))

	// --- AI endpoints ---
	r.Group(func(r chi.Router) {
		if limiter := NewRateLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst); limiter != nil {
			r.Use(limiter.Middleware(logger))
		}

		r.Post("/analyze-expenditure", analyzeExpenditureHandler(agent, metrics, logger))
		r.Post("/generate-insights", generateInsightsHandler(agent, metrics, logger))
		r.Post("/full-analysis", fullAnalysisHandler(agent, metrics, logger))
		r.Post("/chat", chatHandler(agent, metrics, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Financial AI System API"})
	}
}

// healthzHandler reports liveness. The completion backend is listed but
// never probed: a failing provider only degrades answers to fallbacks.
func healthzHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "finai-api", Status: "healthy", LastChecked: now},
		}
		if provider != "" {
			services = append(services, domain.ServiceHealth{
				Name: "completion", Status: "unchecked", Detail: provider, LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   "healthy",
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func completionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCompletionSnapshot())
	}
}
