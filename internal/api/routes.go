package api

import (
	"net/http"
	"time"

	"stockfolio/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.BatchTimeout() + 5*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins(),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", UserIDHeader},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)
	r.Use(UserContext)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	limiter := NewRateLimiter(cfg.HTTP.RateLimitPerMinute)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		// Health check
		r.Get("/health", h.HandleHealth)

		r.Route("/investments", func(r chi.Router) {
			r.Get("/search", h.HandleSearch)
			r.Get("/quote", h.HandleQuote)
			r.Get("/logo", h.HandleLogo)
			r.Get("/api-status", h.HandleAPIStatus)

			// Portfolio
			r.With(RequireUser).Get("/", h.HandleGetInvestments)
			r.With(RequireUser).Get("/{id}", h.HandleGetInvestment)
		})
	})

	return r
}
