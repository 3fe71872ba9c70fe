package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"cms-messaging/auth"
	httpserver "cms-messaging/infrastructure/http"
	"cms-messaging/internal"
	"cms-messaging/repositories"
	"cms-messaging/runtime"
	"cms-messaging/runtime/workers"
	"cms-messaging/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.NewLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("badger open: %w", err)
	}
	defer db.Close()

	// 3. Realtime plumbing: bus -> fanout worker -> registry sinks
	bus := runtime.NewBus(logger, config.EventBufferSize)
	registry := runtime.NewRegistry(bus)
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(workers.NewEventFanout(logger, registry, bus.Events()))

	// 4. Services
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	conversationRepository := repositories.NewConversationRepository(db, logger)
	messageRepository := repositories.NewMessageRepository(db, logger)
	userRepository := repositories.NewUserRepository(db)

	authService := services.NewAuthService(userRepository, tokens)
	messageService := services.NewMessageService(conversationRepository, messageRepository, bus)

	server := httpserver.NewServer(logger, tokens, authService, messageService,
		registry, conversationRepository, config.ConnectionBufferSize)

	// 5. Lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go supervisor.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(config.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return exitRuntime, fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		if err := server.Shutdown(); err != nil {
			logger.Warn("HTTP shutdown failed", "error", err)
		}
		supervisor.Stop()
	}

	logger.Info("Server stopped")
	return exitOK, nil
}
