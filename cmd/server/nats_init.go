// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/logging"
)

// ingestHandlerName is the Watermill handler name of the ingestion consumer.
const ingestHandlerName = "track-ingest"

// NATSComponents holds the JetStream ingestion pipeline for lifecycle management.
//
// The server, connection, stream and publisher live for the whole process.
// The subscriber and router are built by Start so a failed start can be
// retried by the supervisor.
type NATSComponents struct {
	server            *eventprocessor.EmbeddedServer
	natsConn          *natsgo.Conn
	streamInitializer *eventprocessor.StreamInitializer
	publisher         *eventprocessor.Publisher

	router     *eventprocessor.Router
	subscriber *eventprocessor.Subscriber
	handler    *eventprocessor.IngestHandler

	natsURL       string
	cfg           config.NATSConfig
	streamCfg     eventprocessor.StreamConfig
	wmLogger      watermill.LoggerAdapter
	healthChecker *eventprocessor.HealthChecker

	shutdownComplete chan struct{}
	mu               sync.Mutex
	running          bool
}

// InitNATS builds the JetStream pipeline when NATS_ENABLED=true.
// It returns nil, nil when NATS is disabled.
//
// Parameters:
//   - cfg: application configuration with NATS settings
//   - coordinator: ingestion coordinator the consumer drives
//   - healthChecker: receives the server, stream, publisher, router and handler checks
func InitNATS(cfg *config.Config, coordinator eventprocessor.EventHandler, healthChecker *eventprocessor.HealthChecker) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS event processing disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS event processing...")

	handler, err := eventprocessor.NewIngestHandler(coordinator, logging.WithComponent("ingest_handler"))
	if err != nil {
		return nil, err
	}

	components := &NATSComponents{
		handler:          handler,
		cfg:              cfg.NATS,
		wmLogger:         eventprocessor.NewZerologAdapter(logging.WithComponent("watermill")),
		healthChecker:    healthChecker,
		shutdownComplete: make(chan struct{}),
	}

	// Step 1: embedded server or external URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.DefaultServerConfig()
		serverCfg.StoreDir = cfg.NATS.StoreDir
		serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore

		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		components.natsURL = server.ClientURL()
		logging.Info().Str("url", components.natsURL).Msg("Embedded NATS server started")
	} else {
		components.natsURL = cfg.NATS.URL
		logging.Info().Str("url", components.natsURL).Msg("Using external NATS server")
	}

	// Step 2: connection used for stream management
	nc, err := natsgo.Connect(components.natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		components.forceShutdown()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc
	logging.Info().Msg("NATS connection established")

	// Step 3: stream
	js, err := jetstream.New(nc)
	if err != nil {
		components.forceShutdown()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	components.streamCfg = streamConfig(cfg.NATS)
	streamInitializer, err := eventprocessor.NewStreamInitializer(js, &components.streamCfg)
	if err != nil {
		components.forceShutdown()
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	components.streamInitializer = streamInitializer

	ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	stream, err := streamInitializer.EnsureStream(ensureCtx)
	cancel()
	if err != nil {
		components.forceShutdown()
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Dur("max_age", streamInfo.Config.MaxAge).
		Dur("duplicate_window", streamInfo.Config.Duplicates).
		Msg("JetStream stream ready")

	// Step 4: publisher behind a circuit breaker
	publisherCfg := eventprocessor.DefaultPublisherConfig(components.natsURL)
	publisherCfg.Subject = cfg.NATS.Subject
	publisher, err := eventprocessor.NewPublisher(publisherCfg, components.wmLogger)
	if err != nil {
		components.forceShutdown()
		return nil, err
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("nats-publisher"),
		logging.WithComponent("nats_publisher"),
	))
	components.publisher = publisher
	logging.Info().Str("subject", cfg.NATS.Subject).Msg("NATS publisher created")

	// Step 5: health checks
	if healthChecker != nil {
		if components.server != nil {
			healthChecker.RegisterComponent("nats_server", components.server)
		}
		healthChecker.RegisterComponent("nats_stream", streamInitializer)
		healthChecker.RegisterComponent("nats_publisher", publisher)
		healthChecker.RegisterComponent("ingest_handler", handler)
	}

	components.mu.Lock()
	components.running = true
	components.mu.Unlock()

	logging.Info().Msg("NATS event processing initialized successfully")
	return components, nil
}

// streamConfig maps the NATS settings onto the stream definition. The
// poison topic shares the stream so poisoned events stay inspectable.
func streamConfig(cfg config.NATSConfig) eventprocessor.StreamConfig {
	streamCfg := eventprocessor.DefaultStreamConfig()
	streamCfg.Name = cfg.StreamName
	streamCfg.Subjects = []string{cfg.Subject}
	if cfg.RouterPoisonQueueTopic != "" {
		streamCfg.Subjects = append(streamCfg.Subjects, cfg.RouterPoisonQueueTopic)
	}
	if cfg.StreamRetentionDays > 0 {
		streamCfg.MaxAge = time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	}
	return streamCfg
}

// subscriberConfig maps the consumer settings onto the subscriber.
func subscriberConfig(url string, cfg config.NATSConfig, streamName string) eventprocessor.SubscriberConfig {
	subCfg := eventprocessor.DefaultSubscriberConfig(url)
	subCfg.DurableName = cfg.DurableName
	subCfg.QueueGroup = cfg.QueueGroup
	subCfg.SubscribersCount = cfg.SubscribersCount
	subCfg.AckWaitTimeout = cfg.AckWait
	subCfg.MaxDeliver = cfg.MaxDeliver
	subCfg.StreamName = streamName
	return subCfg
}

// routerConfig maps the router settings.
func routerConfig(cfg config.NATSConfig) eventprocessor.RouterConfig {
	routerCfg := eventprocessor.DefaultRouterConfig()
	routerCfg.RetryMaxRetries = cfg.RouterRetryCount
	if cfg.RouterRetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	routerCfg.ThrottlePerSecond = cfg.RouterThrottlePerSecond
	routerCfg.PoisonQueueTopic = cfg.RouterPoisonQueueTopic
	if cfg.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.RouterCloseTimeout
	}
	return routerCfg
}

// Start builds the subscriber and router and runs the router until ctx ends.
// It returns once the router is running.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil || c.handler == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return errors.New("NATS components already shut down")
	}
	if c.router != nil && c.router.IsRunning() {
		return nil
	}
	c.closeConsumerLocked()

	subCfg := subscriberConfig(c.natsURL, c.cfg, c.streamCfg.Name)
	subscriber, err := eventprocessor.NewSubscriber(&subCfg, c.wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}

	routerCfg := routerConfig(c.cfg)
	router, err := eventprocessor.NewRouter(&routerCfg, c.publisher.WatermillPublisher(), c.wmLogger)
	if err != nil {
		_ = subscriber.Close()
		return fmt.Errorf("create router: %w", err)
	}
	router.AddConsumerHandler(ingestHandlerName, c.cfg.Subject, subscriber.WatermillSubscriber(), c.handler.Handle)

	c.subscriber = subscriber
	c.router = router
	if c.healthChecker != nil {
		c.healthChecker.RegisterComponent("nats_router", router)
	}

	logging.Info().Msg("Starting Watermill Router...")
	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()

	select {
	case <-router.Running():
		logging.Info().
			Str("subject", c.cfg.Subject).
			Str("durable", subCfg.DurableName).
			Int("subscribers", subCfg.SubscribersCount).
			Msg("Watermill Router started successfully")
		return nil
	case err := <-runErr:
		c.closeConsumerLocked()
		if err == nil {
			err = errors.New("router stopped before running")
		}
		return fmt.Errorf("run router: %w", err)
	case <-ctx.Done():
		c.closeConsumerLocked()
		return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
	}
}

// Shutdown gracefully stops all NATS components.
//
// Shutdown order:
//  1. Router (finishes in-flight messages)
//  2. Subscriber
//  3. Publisher
//  4. NATS connection
//  5. Embedded server
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.closeConsumerLocked()
	c.mu.Unlock()

	logging.Info().Msg("Shutting down NATS components...")

	c.shutdownPublisher()
	c.shutdownConnection(ctx)

	if c.shutdownComplete != nil {
		close(c.shutdownComplete)
	}
	logging.Info().Msg("NATS shutdown complete")
}

// forceShutdown releases partially initialized components.
func (c *NATSComponents) forceShutdown() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	c.Shutdown(context.Background())
}

// closeConsumerLocked stops the router and closes the subscriber. c.mu must be held.
func (c *NATSComponents) closeConsumerLocked() {
	if c.router != nil {
		if err := c.router.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Router")
		}
		if c.healthChecker != nil {
			c.healthChecker.UnregisterComponent("nats_router")
		}
		c.router = nil
		logging.Info().Msg("Watermill Router stopped")
	}
	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
		c.subscriber = nil
		logging.Info().Msg("Ingest subscriber closed")
	}
}

// shutdownPublisher closes the NATS publisher.
func (c *NATSComponents) shutdownPublisher() {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing publisher")
	}
	logging.Info().Msg("Publisher closed")
}

// shutdownConnection closes NATS connection and embedded server.
func (c *NATSComponents) shutdownConnection(ctx context.Context) {
	if c.natsConn != nil {
		c.natsConn.Close()
		logging.Info().Msg("NATS connection closed")
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down NATS server")
		}
		logging.Info().Msg("Embedded NATS server stopped")
	}
}

// IsRunning returns whether NATS components are active.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Publisher returns the event publisher for the HTTP layer.
// Returns nil if NATS is not initialized.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}
