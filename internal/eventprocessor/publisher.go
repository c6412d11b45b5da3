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
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Metadata keys set on published ingestion messages.
const (
	MetadataUserID    = "user_id"
	MetadataTrackPath = "track_path"
)

// Publisher wraps a Watermill publisher with circuit breaker protection.
type Publisher struct {
	publisher      message.Publisher
	subject        string
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a JetStream publisher with message ID tracking for deduplication.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS publisher reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisherFrom(pub, cfg.Subject, logger), nil
}

// NewPublisherFrom wraps an existing Watermill publisher.
func NewPublisherFrom(pub message.Publisher, subject string, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{
		publisher: pub,
		subject:   subject,
		logger:    logger,
	}
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Subject returns the subject ingestion events are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish sends a message to topic. The message UUID is used as Nats-Msg-Id
// unless one is already set.
func (p *Publisher) Publish(_ context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
		name := p.circuitBreaker.Name()
		switch {
		case err == nil:
			metrics.RecordCircuitBreakerRequest(name, "success")
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.RecordCircuitBreakerRequest(name, "rejected")
		default:
			metrics.RecordCircuitBreakerRequest(name, "failure")
		}
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	if err == nil {
		metrics.RecordNATSPublish()
	}
	return err
}

// PublishEvent validates, serializes and publishes an ingestion event.
// A missing EventID is generated. Nats-Msg-Id is the event's DedupID, so the same
// track announced twice for a user inside the duplicate window is stored once.
func (p *Publisher) PublishEvent(ctx context.Context, event *models.IngestionEvent) error {
	if event != nil && event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event != nil && event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataUserID, event.UserID)
	msg.Metadata.Set(MetadataTrackPath, event.TrackPath)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.DedupID())

	return p.Publish(ctx, p.subject, msg)
}

// Close shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher, for
// components such as the poison queue middleware.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// HealthCheck implements HealthCheckable.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{Healthy: false, Error: "publisher is closed"}
	}

	details := map[string]interface{}{"subject": p.subject}
	if p.circuitBreaker != nil {
		state := p.circuitBreaker.State()
		details["circuit_breaker_state"] = state.String()

		switch state {
		case gobreaker.StateOpen:
			return ComponentHealth{Healthy: false, Error: "circuit breaker is open", Details: details}
		case gobreaker.StateHalfOpen:
			return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker is half-open", Details: details}
		}
	}

	return ComponentHealth{Healthy: true, Message: "publisher is operational", Details: details}
}
