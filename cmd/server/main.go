package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chatline/moderation"
	"chatline/observability"
	"chatline/repositories"
	"chatline/runtime/workers"
	"chatline/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every deferred cleanup executes before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	store := repositories.NewUserRepository(db, log, config.AdminLogin)
	stats := observability.NewChatStats()

	censor, err := moderation.NewModerator(splitWords(config.ForbiddenWords), maskRune(config.ModerationMask))
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	registry := server.NewRegistry(log, store, stats)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	chatServer := server.NewServer(log, address, registry, store, censor, stats, config.IdleLimit)
	sweeper := workers.NewBanSweeper(log, store, config.BanSweepInterval)
	heartbeat := workers.NewHeartbeat(log, stats, config.HeartbeatInterval)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An admin /shutdown closes the registry; treat it like a signal.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-registry.ShutdownRequested():
			cancel()
		case <-runCtx.Done():
		}
	}()

	// 5. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(chatServer, sweeper, heartbeat)
	sup.Run(runCtx)

	// 6. Final cleanup: on a signal-driven exit the sessions are still
	// connected, so close them with the shutdown marker.
	registry.ShutdownAll()
	log.Info("Program stopped cleanly")
	return nil
}

func splitWords(raw string) []string {
	var words []string
	for _, word := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(word); trimmed != "" {
			words = append(words, trimmed)
		}
	}
	return words
}

func maskRune(raw string) rune {
	for _, r := range raw {
		return r
	}
	return '*'
}
