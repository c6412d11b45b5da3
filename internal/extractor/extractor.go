// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/cadence/internal/models"
)

var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("audio content could not be decoded")

	// ErrTimeout is returned when extraction exceeds its deadline.
	ErrTimeout = errors.New("feature extraction timed out")
)

// Extractor computes the feature vector of one track.
// Implementations must return vectors of a fixed dimension.
type Extractor interface {
	Extract(ctx context.Context, trackPath string) (models.FeatureVector, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, trackPath string) (models.FeatureVector, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, trackPath string) (models.FeatureVector, error) {
	return f(ctx, trackPath)
}

// DecodeError reports content that cannot be turned into a feature vector.
// It is permanent: retrying the same path gives the same result.
type DecodeError struct {
	TrackPath string
	Reason    string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s: %s", e.TrackPath, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) true for every DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// NewDecodeError creates a DecodeError.
func NewDecodeError(trackPath, reason string, err error) *DecodeError {
	return &DecodeError{TrackPath: trackPath, Reason: reason, Err: err}
}

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
