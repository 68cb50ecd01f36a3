package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"tipster-chat/auth"
	"tipster-chat/internal"
	"tipster-chat/moderation"
	"tipster-chat/observability"
	"tipster-chat/repositories"
	"tipster-chat/runtime"
	"tipster-chat/runtime/workers"
	"tipster-chat/websocket"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT or SIGTERM.
// Deferred closes run before main exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Message store & search index
	store, err := repositories.Open(repositories.StoreConfig{
		Driver:     config.StoreDriver,
		BadgerPath: config.BadgerFilepath,
		SQLitePath: config.SQLiteFilepath,
	}, log)
	if err != nil {
		return fmt.Errorf("message store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing message store...")
		_ = store.Close()
	}()

	index, err := repositories.OpenSearchIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Chat core
	moderator, err := buildModerator(config, log)
	if err != nil {
		return err
	}
	monitoring := observability.NewMonitoringManager(log)
	registry := runtime.NewRegistry(log, config.Rooms())
	sanitizer := moderation.NewSanitizer(log, config.MaxMessageLength, moderator)
	hub := websocket.NewHub(log, config.ConnectionBufferSize).WithMonitoring(monitoring)
	dispatcher := runtime.NewDispatcher(log, registry, sanitizer, store, index, hub, config.LimitMessages).
		WithMonitoring(monitoring)

	// 4. Transport
	if config.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, every connection chats as Anonymous")
	}
	server := websocket.NewServer(log, websocket.Options{
		Host:            config.Host,
		Port:            config.Port,
		AllowedOrigins:  config.Origins(),
		RatePerSecond:   config.RateLimitPerSecond,
		RateBurst:       config.RateLimitBurst,
		MaxFrameSize:    int64(config.MaxFrameSize),
		ShutdownTimeout: config.ShutdownTimeout,
	}, hub, registry, dispatcher, auth.NewSessionResolver(config.JWTSecret, log))

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision, blocks until the context is canceled
	log.Info("Starting Tipster Arena chat", "rooms", len(registry.Rooms()), "driver", config.StoreDriver)
	workers.NewSupervisor(log, config.RestartInterval).
		Add(server, workers.NewHeartbeatWorker(log, registry, monitoring, config.HeartbeatInterval)).
		Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// buildModerator loads the censored dictionaries, no word is censored when CENSORED_DIR is not set.
func buildModerator(config internal.Config, log *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredDir == "" {
		return nil, nil
	}
	data, err := runtime.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("loading censored words from %s: %w", config.CensoredDir, err)
	}
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	log.Info("Censored words loaded", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, replacement, log)
}
