package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sealed.fyi/config"
	"sealed.fyi/internal/store"
	"sealed.fyi/internal/token"
)

func SetupRouter(s store.Store, iss *token.Issuer, cfg *config.Config) *chi.Mux {
	h := NewHandler(s, iss, cfg)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Burn-Token", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(JSONOnly)

		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			tokenLimiter := NewRateLimiter(cfg.RateLimit.TokenPerMin, time.Minute)

			r.Use(apiLimiter.Middleware)
			r.With(tokenLimiter.Middleware).Post("/token", h.Token)
		} else {
			r.Post("/token", h.Token)
		}

		r.Route("/secrets", func(r chi.Router) {
			r.With(RequireToken(iss)).Post("/", h.CreateSecret)
			r.Get("/{id}", h.RevealSecret)
			r.Delete("/{id}", h.BurnSecret)
		})
	})

	return r
}
