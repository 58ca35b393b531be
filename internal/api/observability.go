package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_player_count",
		Help: "Players registered in the battle engine",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_projectile_count",
		Help: "Live projectiles in the battle engine",
	})

	sandboxCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_sandbox_count",
		Help: "Active per-player sandbox engines",
	})

	battlesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_battles_started_total",
		Help: "Battles started since process start",
	})

	// DoS detection metrics - bounded label values only.
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "ws_total_limit", "ws_ip_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST stay on localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - never expose externally
	}
}

// StartDebugServer starts the internal observability server with pprof,
// /metrics, and a health check. It must bind to localhost only unless
// explicitly overridden.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("debug server on %s (pprof, /metrics)", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler.
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records tick timing for metrics.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateWorldGauges updates the player/projectile gauges from a snapshot.
func UpdateWorldGauges(players, projectiles int) {
	playerCount.Set(float64(players))
	projectileCount.Set(float64(projectiles))
}

// UpdateSandboxCount updates the active sandbox gauge.
func UpdateSandboxCount(count int) {
	sandboxCount.Set(float64(count))
}

// RecordBattleStarted increments the battle counter.
func RecordBattleStarted() {
	battlesStarted.Inc()
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "ws_total_limit", "ws_ip_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the WebSocket message counter.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
