package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/tonetuner/tonetuner/internal/middleware"
)

const readinessTimeout = 2 * time.Second

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Rewrite http.HandlerFunc

	// Users and quota
	GetQuota    http.HandlerFunc
	SetLanguage http.HandlerFunc
	AddReferral http.HandlerFunc

	// Session context
	GetSession       http.HandlerFunc
	SetSessionText   http.HandlerFunc
	SetSessionCustom http.HandlerFunc
	ClearSession     http.HandlerFunc

	// Admin
	AdminToken       http.HandlerFunc
	AdminMetrics     http.HandlerFunc
	AdminResetLimits http.HandlerFunc
	AdminPayments    http.HandlerFunc
	AdminHistory     http.HandlerFunc
	AdminGuard       func(http.Handler) http.Handler
}

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RewriteRateLimiter func(http.Handler) http.Handler
	// Checks are probed by /health/ready. A nil entry reports "not configured".
	Checks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for name, check := range cfg.Checks {
			switch {
			case check == nil:
				health[name] = "not configured"
			case check(ctx) != nil:
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			default:
				health[name] = "healthy"
			}
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RewriteRateLimiter != nil {
				r.Use(cfg.RewriteRateLimiter)
			}
			r.Post("/rewrite", h.Rewrite)
		})

		r.Route("/users/{telegramId}", func(r chi.Router) {
			r.Get("/quota", h.GetQuota)
			r.Put("/language", h.SetLanguage)
		})

		r.Post("/referrals", h.AddReferral)

		r.Route("/sessions/{telegramId}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/message", h.SetSessionText)
			r.Put("/custom-tone", h.SetSessionCustom)
			r.Delete("/", h.ClearSession)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/token", h.AdminToken)

			r.Group(func(r chi.Router) {
				r.Use(h.AdminGuard)
				r.Get("/metrics", h.AdminMetrics)
				r.Post("/limits/reset", h.AdminResetLimits)
				r.Get("/payments", h.AdminPayments)
				r.Get("/users/{telegramId}/history", h.AdminHistory)
			})
		})
	})

	return r
}
