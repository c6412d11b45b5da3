// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import "errors"

// Common API errors
var (
	// ErrPublisherUnavailable indicates the handler was built without an event publisher
	ErrPublisherUnavailable = errors.New("event publisher is not configured")

	// ErrDeadLettersUnavailable indicates the handler was built without a dead-letter store
	ErrDeadLettersUnavailable = errors.New("dead-letter store is not configured")
)

// Error codes returned in APIError.Code
const (
	codeInvalidLimit   = "INVALID_LIMIT"
	codeInvalidBody    = "INVALID_REQUEST_BODY"
	codeRecommendation = "RECOMMENDATION_ERROR"
	codePublish        = "PUBLISH_ERROR"
	codeNotFound       = "NOT_FOUND"
	codeDeadLetter     = "DEADLETTER_ERROR"
	codeReplayFailed   = "REPLAY_FAILED"
	codeUnavailable    = "SERVICE_UNAVAILABLE"
	codeNotReady       = "NOT_READY"
)
