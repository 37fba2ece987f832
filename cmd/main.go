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
	"github.com/mama165/sdk-go/logs"

	"collabrick/directory"
	"collabrick/repositories"
	"collabrick/runtime"
	"collabrick/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the lifecycle, and centralizes
// error reporting so every defer executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	replacement, err := characterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	activityRepository, err := repositories.NewActivityRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = activityRepository.Close() }()

	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messageRepository.Close() }()

	mentionRepository := repositories.NewMentionRepository(db, log)

	// 4. Core assembly
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	core, err := runtime.NewCore(
		log, supervisor, registry,
		activityRepository, messageRepository, mentionRepository,
		directory.NewChannels(), directory.NewRenovations(), directory.NewUsers(),
		runtime.CoreConfig{
			BufferSize:        config.BufferSize,
			SinkTimeout:       config.SinkTimeout,
			RetentionInterval: config.RetentionInterval,
			CharReplacement:   replacement,
		},
	)
	if err != nil {
		return fmt.Errorf("core assembly failed: %w", err)
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Start the engine and wait for a stop signal
	core.Start(ctx)
	<-ctx.Done()

	log.Info("Shutting down gracefully...")
	core.Stop()
	log.Info("Program stopped cleanly")
	return nil
}
