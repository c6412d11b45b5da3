// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/cadence/internal/models"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrInvalidInput is returned for arguments that can never be stored.
	ErrInvalidInput = errors.New("invalid store input")
)

// StoreError wraps a backend failure with the operation that caused it.
//
//nolint:revive // store.StoreError reads naturally at call sites in other packages
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is or wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsTransient reports whether retrying the failed operation may succeed.
// Cancellation, closed stores, invalid input, inconsistent dimensions and schema
// failures are permanent;
// every other backend failure (locks, conflicts, lost connections, timeouts) is transient.
func IsTransient(err error) bool {
	if !IsStoreError(err) {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrClosed),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, models.ErrDimensionMismatch),
		isClosedDB(err),
		isSchemaError(err):
		return false
	default:
		return true
	}
}

// Kind classifies the failure for metrics and logs.
func (e *StoreError) Kind() string {
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(e.Err, context.Canceled):
		return "canceled"
	case errors.Is(e.Err, ErrClosed) || isClosedDB(e.Err):
		return "closed"
	case errors.Is(e.Err, ErrInvalidInput):
		return "invalid_input"
	case isConnectionError(e.Err):
		return "connection"
	case isLockContention(e.Err):
		return "contention"
	case isSchemaError(e.Err):
		return "schema"
	default:
		return "other"
	}
}

// isClosedDB detects use of a *sql.DB after Close.
func isClosedDB(err error) bool {
	return strings.Contains(err.Error(), "sql: database is closed")
}

// isSchemaError detects failures that no retry can fix
func isSchemaError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "no such table") ||
		strings.Contains(errStr, "does not exist") ||
		strings.Contains(errStr, "syntax error") ||
		strings.Contains(errStr, "Catalog Error") ||
		strings.Contains(errStr, "Parser Error")
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "bad connection") ||
		strings.Contains(errMsg, "connection lost")
}

// isLockContention checks for SQLite busy/locked and DuckDB transaction conflicts
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "could not serialize access")
}

// closeQuietly closes a resource and ignores the error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
