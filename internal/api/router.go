package api

import (
	"api-pvp/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains the dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
type RouterConfig struct {
	// Battle is the shared battle engine (required).
	Battle *game.Engine

	// Sandbox manages per-player practice engines (required).
	Sandbox *game.SandboxManager

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used when RateLimiter is nil; nil means defaults.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// tests and benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It opens no listeners, so the result can be handed straight to
// httptest.NewServer. Pass RateLimiter to keep ownership of the limiter's
// cleanup worker; otherwise one is created here.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are rejected early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	h := &routerHandlers{
		battle:  cfg.Battle,
		sandbox: cfg.Sandbox,
	}

	r.Route("/api", func(r chi.Router) {
		// Battle arena
		r.Post("/register", h.handleRegister)
		r.Delete("/player/{playerID}", h.handleUnregister)
		r.Post("/action", h.handleAction)
		r.Post("/ready", h.handleReady)
		r.Post("/start", h.handleStart)
		r.Post("/reset", h.handleReset)

		// State views
		r.Get("/state", h.handleGetState)
		r.Get("/state/{playerID}", h.handleGetPlayerState)
		r.Get("/debug", h.handleGetDebugState)
		r.Get("/arena.png", h.handleArenaPNG)

		// Per-player practice sandboxes
		r.Route("/sandbox", func(r chi.Router) {
			r.Post("/register", h.handleSandboxRegister)
			r.Post("/action", h.handleSandboxAction)
			r.Get("/state/{playerID}", h.handleSandboxState)
			r.Delete("/{playerID}", h.handleSandboxRemove)
		})
	})

	return r
}
