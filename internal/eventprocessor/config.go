// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"time"
)

// Default subject and stream names for ingestion events.
const (
	DefaultSubject          = "tracks.new"
	DefaultStreamName       = "TRACKS"
	DefaultPoisonQueueTopic = "tracks.poison"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Name              string
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	MaxPayload        int32
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Name:              "cadence-events",
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 4 << 30,   // 4GB
		MaxPayload:        1 << 20,   // 1MB, events are small
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	Subject          string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int

	// EnableTrackMsgID makes watermill set Nats-Msg-Id to the message UUID,
	// replacing the track-derived id Publisher writes into the metadata.
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		Subject:          DefaultSubject,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: false,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL         string
	DurableName string
	QueueGroup  string

	// SubscribersCount is the number of concurrent message processors.
	// Values above 1 lose cross-user ordering; per-user ordering of the
	// persist and recompute phases is still kept by the coordinator.
	SubscribersCount int

	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration

	// StreamName binds the subscriber to an existing stream and disables
	// auto provisioning.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "track-ingest",
		QueueGroup:       "ingest",
		SubscribersCount: 1,
		AckWaitTimeout:   5 * time.Minute, // extraction can be slow
		MaxDeliver:       10,
		MaxAckPending:    100,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       DefaultStreamName,
	}
}

// StreamConfig defines ingestion stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            DefaultStreamName,
		Subjects:        []string{DefaultSubject, DefaultPoisonQueueTopic},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1 << 30, // 1GB
		MaxMsgs:         -1,      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
