// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"time"
)

// APIResponse is the response wrapper used by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data
//   - "error": Request failed, see Error
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"user_id": "alice", "entries": [...]},
//	  "metadata": {"timestamp": "2026-01-28T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError contains machine-readable error details.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
