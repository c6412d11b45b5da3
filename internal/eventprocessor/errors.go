// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import "errors"

// ErrPublisherClosed is returned when publishing on a closed publisher.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrRequeue is returned by the ingest handler to nack a message for redelivery.
var ErrRequeue = errors.New("event requeued")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")
