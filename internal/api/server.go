package api

import (
	"log"
	"net/http"

	"api-pvp/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket state fan-out.
type Server struct {
	battle      *game.Engine
	sandbox     *game.SandboxManager
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// ServerOptions tunes the transport layer.
type ServerOptions struct {
	MaxWSConnections int
	MaxWSPerIP       int
	RateLimitConfig  *RateLimitConfig
}

// NewServer creates the API server. No listeners are opened until Start
// is called, so tests can construct a server and drive Router() through
// httptest.
func NewServer(battle *game.Engine, sandbox *game.SandboxManager, opts ServerOptions) *Server {
	if opts.MaxWSConnections <= 0 {
		opts.MaxWSConnections = 500
	}
	if opts.MaxWSPerIP <= 0 {
		opts.MaxWSPerIP = 10
	}

	rateLimitCfg := DefaultRateLimitConfig
	if opts.RateLimitConfig != nil {
		rateLimitCfg = *opts.RateLimitConfig
	}

	s := &Server{
		battle:      battle,
		sandbox:     sandbox,
		wsHub:       NewWebSocketHub(opts.MaxWSConnections, opts.MaxWSPerIP),
		rateLimiter: NewIPRateLimiter(rateLimitCfg),
	}

	s.router = NewRouter(RouterConfig{
		Battle:      battle,
		Sandbox:     sandbox,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket routes need the hub instance, so they sit outside the
	// pure router factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start launches the WebSocket hub, wires it to the engine's per-tick
// broadcast, and serves HTTP. Blocks like http.ListenAndServe.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.BindEngine(s.battle)

	// Tick timing flows into metrics through the engine's hook.
	s.battle.SetTickDurationHook(RecordTick)

	log.Printf("api server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop shuts down background workers. Call before process exit.
func (s *Server) Stop() {
	s.wsHub.Unbind()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
