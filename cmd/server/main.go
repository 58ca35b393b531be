package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"api-pvp/internal/api"
	"api-pvp/internal/config"
	"api-pvp/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  API PVP - BATTLE SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server
	limitsCfg := appConfig.Limits

	log.Printf("🎮 Config: %d TPS, %ds battles, %.0fx%.0f arena",
		gameCfg.TickRate, gameCfg.BattleSeconds, gameCfg.ArenaWidth, gameCfg.ArenaHeight)

	// Shared battle engine.
	battle := game.NewEngine(game.Config{
		TickRate:       gameCfg.TickRate,
		MaxBattleTicks: gameCfg.MaxBattleTicks(),
		Arena:          game.StandardArena(gameCfg.ArenaWidth, gameCfg.ArenaHeight, time.Now().UnixNano()),
	})

	// Sandboxes run the same simulation, one isolated instance per player.
	sandbox := game.NewSandboxManager(func() game.Config {
		return game.Config{
			TickRate:       gameCfg.TickRate,
			MaxBattleTicks: gameCfg.MaxBattleTicks(),
			Arena:          game.StandardArena(gameCfg.ArenaWidth, gameCfg.ArenaHeight, time.Now().UnixNano()),
		}
	})

	if serverCfg.EventLogPath != "" {
		if err := battle.StartEventLog(serverCfg.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
		}
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(battle, sandbox, api.ServerOptions{
		MaxWSConnections: limitsCfg.MaxWSConnections,
		MaxWSPerIP:       limitsCfg.MaxWSPerIP,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: limitsCfg.RequestsPerSecond,
			Burst:             limitsCfg.RequestBurst,
			CleanupInterval:   5 * time.Minute,
		},
	})

	battle.Start()
	log.Println("✅ Battle engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	sandbox.Shutdown()
	battle.StopEventLog()
	battle.Stop()
	log.Println("👋 Goodbye!")
}
