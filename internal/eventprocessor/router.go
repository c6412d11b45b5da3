// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry covers handler panics and unexpected errors. Store retries
	// happen inside the coordinator.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second (0 = disabled).
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that still fail after retries.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     30 * time.Second,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueTopic:     DefaultPoisonQueueTopic,
	}
}

// Router wraps the Watermill Router with the ingestion middleware stack.
type Router struct {
	router    *message.Router
	config    RouterConfig
	logger    watermill.LoggerAdapter
	poisonPub message.Publisher
	running   atomic.Bool

	mu       sync.Mutex
	handlers map[string]*message.Handler
}

// NewRouter creates a Watermill Router. Middleware, outer to inner:
// Throttle (optional), PoisonQueue (optional), Retry, Recoverer.
// Errors wrapping ErrRequeue bypass the poison queue so the message is
// nacked and redelivered by JetStream.
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg == nil {
		defaultCfg := DefaultRouterConfig()
		cfg = &defaultCfg
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:    wmRouter,
		config:    *cfg,
		logger:    logger,
		poisonPub: poisonPublisher,
		handlers:  make(map[string]*message.Handler),
	}

	// The first middleware added is the outermost.
	if cfg.ThrottlePerSecond > 0 {
		throttle := middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second)
		wmRouter.AddMiddleware(throttle.Middleware)
	}

	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueueWithFilter(poisonPublisher, cfg.PoisonQueueTopic, func(err error) bool {
			return !errors.Is(err, ErrRequeue)
		})
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	wmRouter.AddMiddleware(middleware.Recoverer)

	return r, nil
}

// AddConsumerHandler registers a handler that produces no output messages.
func (r *Router) AddConsumerHandler(name, subscribeTopic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
	return h
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

// HealthCheck implements HealthCheckable.
func (r *Router) HealthCheck(_ context.Context) ComponentHealth {
	r.mu.Lock()
	handlers := len(r.handlers)
	r.mu.Unlock()

	if !r.IsRunning() {
		return ComponentHealth{Healthy: false, Error: "router is not running"}
	}
	return ComponentHealth{
		Healthy: true,
		Message: "router is running",
		Details: map[string]interface{}{"handlers": handlers},
	}
}
