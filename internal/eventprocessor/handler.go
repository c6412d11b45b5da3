// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// EventHandler is the part of the ingestion coordinator the handler drives.
type EventHandler interface {
	Handle(ctx context.Context, event *models.IngestionEvent) ingest.Outcome
}

// IngestHandler decodes ingestion messages and runs them through the coordinator.
//
// Ack/nack mapping:
//   - malformed payload: acked and dropped
//   - Done, Dropped, DeadLettered: acked
//   - Requeue: nacked for redelivery
type IngestHandler struct {
	coordinator EventHandler
	serializer  *Serializer
	logger      zerolog.Logger

	messagesReceived atomic.Int64
	messagesAcked    atomic.Int64
	messagesNacked   atomic.Int64
	parseErrors      atomic.Int64
	lastMessageTime  atomic.Int64 // unix nanoseconds
}

// HandlerStats is a snapshot of handler counters.
type HandlerStats struct {
	MessagesReceived int64
	MessagesAcked    int64
	MessagesNacked   int64
	ParseErrors      int64
	LastMessageTime  time.Time
}

// NewIngestHandler creates a handler over coordinator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIngestHandler(coordinator EventHandler, logger zerolog.Logger) (*IngestHandler, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator required")
	}
	return &IngestHandler{
		coordinator: coordinator,
		serializer:  NewSerializer(),
		logger:      logger.With().Str("component", "ingest_handler").Logger(),
	}, nil
}

// Handle implements message.NoPublishHandlerFunc.
func (h *IngestHandler) Handle(msg *message.Message) error {
	start := time.Now()
	h.messagesReceived.Add(1)
	h.lastMessageTime.Store(start.UnixNano())
	metrics.RecordNATSConsume()
	defer func() { metrics.RecordNATSProcessingDuration(time.Since(start)) }()

	event, err := h.serializer.Unmarshal(msg.Payload)
	if err != nil {
		h.parseErrors.Add(1)
		h.messagesAcked.Add(1)
		metrics.RecordNATSParseFailed()
		h.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed ingestion message")
		return nil
	}
	if event.EventID == "" {
		event.EventID = msg.UUID
	}

	ctx := logging.ContextWithCorrelationID(msg.Context(), event.EventID)
	out := h.coordinator.Handle(ctx, event)

	if out.Disposition == ingest.DispositionRequeue {
		h.messagesNacked.Add(1)
		return fmt.Errorf("%w: event %s: %v", ErrRequeue, event.EventID, out.Err)
	}

	h.messagesAcked.Add(1)
	return nil
}

// Stats returns the handler counters.
func (h *IngestHandler) Stats() HandlerStats {
	stats := HandlerStats{
		MessagesReceived: h.messagesReceived.Load(),
		MessagesAcked:    h.messagesAcked.Load(),
		MessagesNacked:   h.messagesNacked.Load(),
		ParseErrors:      h.parseErrors.Load(),
	}
	if ns := h.lastMessageTime.Load(); ns > 0 {
		stats.LastMessageTime = time.Unix(0, ns)
	}
	return stats
}

// HealthCheck implements HealthCheckable. A high parse error rate reports degraded.
func (h *IngestHandler) HealthCheck(_ context.Context) ComponentHealth {
	stats := h.Stats()
	details := map[string]interface{}{
		"messages_received": stats.MessagesReceived,
		"messages_acked":    stats.MessagesAcked,
		"messages_nacked":   stats.MessagesNacked,
		"parse_errors":      stats.ParseErrors,
	}
	if !stats.LastMessageTime.IsZero() {
		details["last_message_time"] = stats.LastMessageTime.Format(time.RFC3339)
	}

	if stats.MessagesReceived > 100 && float64(stats.ParseErrors)/float64(stats.MessagesReceived) > 0.1 {
		return ComponentHealth{Healthy: true, Degraded: true, Message: "high parse error rate", Details: details}
	}
	return ComponentHealth{Healthy: true, Message: "ingest handler is operational", Details: details}
}
