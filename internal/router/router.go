package router

import (
	"cardvault-price-api/internal/handler"
	"cardvault-price-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler             *handler.Handler
	JobHandler          *handler.JobHandler
	ExchangeRateHandler *handler.ExchangeRateHandler
	PriceHandler        *handler.PriceHandler
	AdminHandler        *handler.AdminHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	// Permissive CORS for browser clients of the deck builder; OPTIONS
	// preflights are short-circuited here.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Client-Info"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Scheduler-triggered pipeline jobs
		if cfg.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/price-sync", cfg.JobHandler.PriceSync)
				r.Post("/price-retention", cfg.JobHandler.PriceRetention)
			})
		}

		if cfg.ExchangeRateHandler != nil {
			r.Post("/exchange-rate", cfg.ExchangeRateHandler.ExchangeRate)
		}

		if cfg.PriceHandler != nil {
			r.Route("/cards/{card_id}", func(r chi.Router) {
				r.Get("/price", cfg.PriceHandler.LatestPrice)
				r.Get("/price-history", cfg.PriceHandler.PriceHistory)
			})
		}

		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
