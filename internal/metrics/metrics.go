// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Ingestion state machine transitions
// - Feature extraction latency
// - Track store operations
// - Recommendation recomputes and snapshot lookups
// - Dead-letter channel depth and replays
// - API endpoint latency and throughput

var (
	// Ingestion Metrics
	IngestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_state_transitions_total",
			Help: "Total number of ingestion state machine transitions by target state",
		},
		[]string{"state"}, // "extracting", "persisting", "recomputing", "done", "failed"
	)

	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of ingestion events by terminal state and failure stage",
		},
		[]string{"state", "stage"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_event_duration_seconds",
			Help:    "End-to-end duration of one ingestion event",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	IngestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_retries_total",
			Help: "Total number of retried ingestion stages",
		},
		[]string{"stage"},
	)

	// Feature Extraction Metrics
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Duration of feature extraction calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"}, // "success", "decode_error", "timeout", "error"
	)

	ExtractionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extractions_in_flight",
			Help: "Current number of running feature extractions",
		},
	)

	// Track Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of track store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of failed track store operations",
		},
		[]string{"backend", "operation", "error_type"},
	)

	StoreTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_tracks",
			Help: "Number of tracks held by the track store",
		},
	)

	// Recommendation Metrics
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_recompute_duration_seconds",
			Help:    "Duration of recommendation recomputes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	SimilarityComparisons = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_comparisons_total",
			Help: "Total number of reference/candidate vector pairs scored",
		},
	)

	SnapshotLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_snapshot_lookups_total",
			Help: "Total number of snapshot lookups by view and result",
		},
		[]string{"view", "result"}, // result: "hit", "miss"
	)

	SnapshotsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_snapshots_cached",
			Help: "Current number of published recommendation snapshots",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Dead Letter Metrics
	DeadLetterEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deadletter_entries",
			Help: "Current number of unresolved dead-lettered events",
		},
	)

	DeadLetterAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_added_total",
			Help: "Total number of events written to the dead-letter channel",
		},
		[]string{"stage"},
	)

	DeadLetterRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deadletter_removed_total",
			Help: "Total number of dead-lettered events resolved or deleted",
		},
	)

	DeadLetterReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadletter_replays_total",
			Help: "Total number of dead-letter replay attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	DeadLetterOldestAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deadletter_oldest_entry_age_seconds",
			Help: "Age of the oldest unresolved dead-lettered event",
		},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of ingestion events published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of ingestion events consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of messages dropped because they could not be parsed",
		},
	)

	NATSProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nats_processing_duration_seconds",
			Help:    "Duration of NATS message handling",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordIngestTransition records the ingestion state machine entering a state
func RecordIngestTransition(state string) {
	IngestTransitions.WithLabelValues(state).Inc()
}

// RecordIngestOutcome records the terminal state of one ingestion event.
// stage is empty for successful events.
func RecordIngestOutcome(state, stage string, duration time.Duration) {
	if stage == "" {
		stage = "none"
	}
	IngestOutcomes.WithLabelValues(state, stage).Inc()
	IngestDuration.Observe(duration.Seconds())
}

// RecordIngestRetry records a retried ingestion stage
func RecordIngestRetry(stage string) {
	IngestRetries.WithLabelValues(stage).Inc()
}

// RecordExtraction records a feature extraction call
func RecordExtraction(outcome string, duration time.Duration) {
	ExtractionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// TrackExtractionInFlight tracks running feature extractions
func TrackExtractionInFlight(inc bool) {
	if inc {
		ExtractionsInFlight.Inc()
	} else {
		ExtractionsInFlight.Dec()
	}
}

// RecordStoreOperation records a track store operation metric.
// errorKind is empty for successful operations.
func RecordStoreOperation(backend, operation string, duration time.Duration, errorKind string) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if errorKind != "" {
		StoreOperationErrors.WithLabelValues(backend, operation, errorKind).Inc()
	}
}

// UpdateStoreTracks sets the number of stored tracks
func UpdateStoreTracks(count int64) {
	StoreTracks.Set(float64(count))
}

// RecordRecompute records a recommendation recompute and the vector pairs it scored
func RecordRecompute(duration time.Duration, pairs int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	RecomputeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if pairs > 0 {
		SimilarityComparisons.Add(float64(pairs))
	}
}

// RecordSnapshotLookup records a snapshot registry lookup
func RecordSnapshotLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SnapshotLookups.WithLabelValues(view, result).Inc()
}

// UpdateSnapshotsCached sets the number of published snapshots
func UpdateSnapshotsCached(count int) {
	SnapshotsCached.Set(float64(count))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordCircuitBreakerRequest records the result of a call through a circuit breaker
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a circuit breaker state change.
// state is the numeric value of the new state.
func RecordCircuitBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordDeadLetter records an event being written to the dead-letter channel
func RecordDeadLetter(stage string) {
	DeadLetterAdded.WithLabelValues(stage).Inc()
}

// RecordDeadLetterRemoval records a dead-lettered event being resolved or deleted
func RecordDeadLetterRemoval() {
	DeadLetterRemoved.Inc()
}

// RecordDeadLetterReplay records a replay attempt and its outcome
func RecordDeadLetterReplay(success bool) {
	if success {
		DeadLetterReplays.WithLabelValues("success").Inc()
	} else {
		DeadLetterReplays.WithLabelValues("failure").Inc()
	}
}

// UpdateDeadLetterGauges updates dead-letter gauges with current stats
func UpdateDeadLetterGauges(totalEntries int64, oldestEntryAge float64) {
	DeadLetterEntries.Set(float64(totalEntries))
	DeadLetterOldestAge.Set(oldestEntryAge)
}

// RecordNATSPublish records a message being published to NATS
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume records a message being consumed from NATS
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// RecordNATSParseFailed records a message that failed to parse
func RecordNATSParseFailed() {
	NATSMessagesParseFailed.Inc()
}

// RecordNATSProcessingDuration records the duration of message processing
func RecordNATSProcessingDuration(duration time.Duration) {
	NATSProcessingDuration.Observe(duration.Seconds())
}

// SetAppInfo publishes the build information gauge
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

// UpdateUptime sets the uptime gauge relative to the process start time
func UpdateUptime(startedAt time.Time) {
	AppUptime.Set(time.Since(startedAt).Seconds())
}
