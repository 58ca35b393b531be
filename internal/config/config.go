// Package config provides centralized configuration management.
// This is the single source of truth for all server and simulation
// settings; everything else references these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds simulation settings shared by the battle engine and
// every sandbox instance.
type GameConfig struct {
	TickRate      int     // Authoritative ticks per second
	BattleSeconds int     // Battle time limit
	ArenaWidth    float64 // Arena width in arena units
	ArenaHeight   float64 // Arena height in arena units
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:      20,
		BattleSeconds: 120,
		ArenaWidth:    800,
		ArenaHeight:   600,
	}
}

// GameFromEnv returns game configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if bs := getEnvInt("BATTLE_SECONDS", 0); bs > 0 {
		cfg.BattleSeconds = bs
	}
	if w := getEnvFloat("ARENA_WIDTH", 0); w > 0 {
		cfg.ArenaWidth = w
	}
	if h := getEnvFloat("ARENA_HEIGHT", 0); h > 0 {
		cfg.ArenaHeight = h
	}

	return cfg
}

// MaxBattleTicks converts the battle time limit into ticks.
func (c GameConfig) MaxBattleTicks() int64 {
	return int64(c.BattleSeconds * c.TickRate)
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	EventLogPath string // NDJSON battle log destination ("" disables)
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		EventLogPath: "events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = path
	}

	return cfg
}

// =============================================================================
// CONNECTION LIMITS
// =============================================================================

// LimitsConfig controls transport-side resource limits. The simulation
// core never back-pressures; these caps live entirely at the edge.
type LimitsConfig struct {
	MaxWSConnections  int     // Hard cap on total WebSocket connections
	MaxWSPerIP        int     // WebSocket connections per IP
	RequestsPerSecond float64 // HTTP requests per second per IP
	RequestBurst      int     // HTTP burst size per IP
}

// DefaultLimits returns the default connection limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MaxWSConnections:  500,
		MaxWSPerIP:        10,
		RequestsPerSecond: 20,
		RequestBurst:      40,
	}
}

// LimitsFromEnv returns limits with environment variable overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_WS_CONNECTIONS", 0); n > 0 {
		cfg.MaxWSConnections = n
	}
	if n := getEnvInt("MAX_WS_PER_IP", 0); n > 0 {
		cfg.MaxWSPerIP = n
	}
	if rps := getEnvFloat("REQUESTS_PER_SECOND", 0); rps > 0 {
		cfg.RequestsPerSecond = rps
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Server ServerConfig
	Limits LimitsConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:   GameFromEnv(),
		Server: ServerFromEnv(),
		Limits: LimitsFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
