// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cadence/internal/api"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/store"
	"github.com/tomtom215/cadence/internal/supervisor"
	"github.com/tomtom215/cadence/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)

	logging.Info().
		Int("dimension", cfg.Features.Dimension()).
		Str("store_backend", cfg.Store.Backend).
		Str("extractor_url", cfg.Extractor.URL).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Cadence with supervisor tree")

	// Track store
	trackStore, err := store.Open(cfg.StoreConfig(), logging.WithComponent("store"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open track store")
	}
	defer func() {
		if err := trackStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing track store")
		}
	}()
	logging.Info().Str("backend", trackStore.Backend()).Msg("Track store initialized successfully")

	// Dead-letter channel
	deadLetters, err := deadletter.Open(cfg.DeadLetter, logging.WithComponent("deadletter"))
	if err != nil {
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to open dead-letter store")
	}
	defer func() {
		if err := deadLetters.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dead-letter store")
		}
	}()
	logging.Info().Str("path", cfg.DeadLetter.Path).Msg("Dead-letter store initialized")

	// Recommendation engine
	engine, err := recommend.NewEngine(cfg.RecommendConfig(), trackStore, logging.WithComponent("recommend"))
	if err != nil {
		closeQuietly("dead-letter store", deadLetters.Close)
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	// Extraction and ingestion
	healthChecker := eventprocessor.NewHealthChecker(eventprocessor.DefaultHealthConfig())
	ext := initExtractor(cfg, healthChecker)

	coordinator, err := ingest.NewCoordinator(ext, trackStore, engine, deadLetters, cfg.Ingest, logging.WithComponent("ingest"))
	if err != nil {
		closeQuietly("dead-letter store", deadLetters.Close)
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to create ingestion coordinator")
	}

	replayWorker, err := deadletter.NewReplayWorker(deadLetters, coordinator, logging.WithComponent("deadletter"))
	if err != nil {
		closeQuietly("dead-letter store", deadLetters.Close)
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to create dead-letter replay worker")
	}

	registerHealthChecks(healthChecker, trackStore, deadLetters)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger("supervisor")

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		closeQuietly("dead-letter store", deadLetters.Close)
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	logging.Info().Msg("Supervisor tree created")

	// Ingestion transport: JetStream when enabled, otherwise an in-process queue
	var publisher api.EventPublisher
	natsComponents, err := InitNATS(cfg, coordinator, healthChecker)
	if err != nil {
		closeQuietly("dead-letter store", deadLetters.Close)
		closeQuietly("track store", trackStore.Close)
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}
	if natsComponents != nil {
		publisher = natsComponents.Publisher()
		tree.AddMessagingService(services.NewNATSComponentsService(natsComponents, cfg.Server.ShutdownTimeout))
		logging.Info().Msg("NATS components added to supervisor tree")
	} else {
		source := ingest.NewChannelSource(cfg.NATS.LocalQueueSize)
		publisher = source
		tree.AddMessagingService(services.NewIngestLoopService(coordinator, source))
		logging.Info().Int("queue_size", cfg.NATS.LocalQueueSize).Msg("In-process ingest loop added to supervisor tree")
	}

	// Data layer services
	tree.AddDataService(services.NewDeadLetterReplayService(replayWorker))
	logging.Info().
		Bool("auto_replay", cfg.DeadLetter.AutoReplay).
		Dur("interval", cfg.DeadLetter.ReplayInterval).
		Msg("Dead-letter replay worker added to supervisor tree")

	if cfg.Recommend.SnapshotTTL > 0 {
		tree.AddDataService(services.NewSnapshotJanitorService(engine, cfg.Recommend.JanitorInterval, logging.WithComponent("recommend")))
		logging.Info().
			Dur("ttl", cfg.Recommend.SnapshotTTL).
			Dur("interval", cfg.Recommend.JanitorInterval).
			Msg("Snapshot janitor added to supervisor tree")
	}

	// HTTP API
	handler := api.NewHandler(engine, publisher, healthChecker)
	handler.SetDeadLetters(deadLetters, replayWorker)
	handler.SetIngestStats(coordinator)

	router := api.NewRouter(handler, chiMiddlewareConfig(cfg))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	stats := coordinator.Stats()
	logging.Info().
		Int64("handled", stats.Handled).
		Int64("done", stats.Done).
		Int64("dropped", stats.Dropped).
		Int64("dead_lettered", stats.DeadLettered).
		Msg("Application stopped gracefully")
}

// chiMiddlewareConfig maps the server settings onto the HTTP middleware.
func chiMiddlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mw.RateLimitRequests = cfg.Server.RateLimitReqs
	mw.RateLimitWindow = cfg.Server.RateLimitWindow
	mw.RateLimitDisabled = cfg.Server.RateLimitDisabled
	return mw
}

// closeQuietly closes a resource before a fatal exit, where deferred calls do not run.
func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("resource", name).Msg("Error closing resource")
	}
}
