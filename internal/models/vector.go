// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// bytesPerComponent is the encoded size of one float64 component.
const bytesPerComponent = 8

var (
	// ErrEmptyVector is returned when a vector has no components.
	ErrEmptyVector = errors.New("feature vector is empty")

	// ErrNonFiniteComponent is returned when a vector contains NaN or Inf.
	ErrNonFiniteComponent = errors.New("feature vector contains a non-finite component")

	// ErrInvalidEncoding is returned when a binary payload is not a whole number of components.
	ErrInvalidEncoding = errors.New("invalid feature vector encoding")

	// ErrDimensionMismatch is matched by every DimensionMismatchError.
	ErrDimensionMismatch = errors.New("feature vector dimension mismatch")
)

// DimensionMismatchError reports a vector whose length disagrees with the expected dimension.
// It always points at configuration drift between the extractor and the rest of the system.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("feature vector dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// FeatureVector is an immutable ordered sequence of real numbers.
// The zero value is an empty vector and is only useful as a placeholder.
type FeatureVector struct {
	values []float64
}

// NewFeatureVector copies values into a new FeatureVector.
// Empty input and non-finite components are rejected.
func NewFeatureVector(values []float64) (FeatureVector, error) {
	if len(values) == 0 {
		return FeatureVector{}, ErrEmptyVector
	}
	cp := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureVector{}, fmt.Errorf("component %d: %w", i, ErrNonFiniteComponent)
		}
		cp[i] = v
	}
	return FeatureVector{values: cp}, nil
}

// MustFeatureVector is NewFeatureVector for literals in tests and fixtures. It panics on error.
func MustFeatureVector(values ...float64) FeatureVector {
	v, err := NewFeatureVector(values)
	if err != nil {
		panic(err)
	}
	return v
}

// Dim returns the number of components.
func (v FeatureVector) Dim() int {
	return len(v.values)
}

// IsZero reports whether the vector has no components.
func (v FeatureVector) IsZero() bool {
	return len(v.values) == 0
}

// At returns component i.
func (v FeatureVector) At(i int) float64 {
	return v.values[i]
}

// Values returns a copy of the components.
func (v FeatureVector) Values() []float64 {
	cp := make([]float64, len(v.values))
	copy(cp, v.values)
	return cp
}

// Norm returns the Euclidean length. Components are scaled by the largest
// magnitude so the result stays finite for any finite vector whose length is.
func (v FeatureVector) Norm() float64 {
	var maxAbs float64
	for _, x := range v.values {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return 0
	}
	var sum float64
	for _, x := range v.values {
		s := x / maxAbs
		sum += s * s
	}
	return maxAbs * math.Sqrt(sum)
}

// CheckDim returns a DimensionMismatchError unless the vector has exactly want components.
func (v FeatureVector) CheckDim(want int) error {
	if len(v.values) != want {
		return &DimensionMismatchError{Want: want, Got: len(v.values)}
	}
	return nil
}

// MarshalJSON encodes the vector as a JSON array.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	if v.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.values)
}

// UnmarshalJSON decodes a JSON array and applies the constructor checks.
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode feature vector: %w", err)
	}
	fv, err := NewFeatureVector(values)
	if err != nil {
		return err
	}
	*v = fv
	return nil
}

// EncodeVector serializes v as little-endian float64 components.
func EncodeVector(v FeatureVector) []byte {
	buf := make([]byte, len(v.values)*bytesPerComponent)
	for i, x := range v.values {
		binary.LittleEndian.PutUint64(buf[i*bytesPerComponent:], math.Float64bits(x))
	}
	return buf
}

// DecodeVector parses the output of EncodeVector.
func DecodeVector(data []byte) (FeatureVector, error) {
	if len(data) == 0 || len(data)%bytesPerComponent != 0 {
		return FeatureVector{}, fmt.Errorf("%w: %d bytes", ErrInvalidEncoding, len(data))
	}
	values := make([]float64, len(data)/bytesPerComponent)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*bytesPerComponent:]))
	}
	return NewFeatureVector(values)
}

// FeatureLayout describes how a vector is assembled from its three sub-feature groups.
type FeatureLayout struct {
	MFCC     int `json:"mfcc"`
	Chroma   int `json:"chroma"`
	Contrast int `json:"contrast"`
}

// DefaultFeatureLayout is 13 MFCC means, 12 chroma means and 7 spectral-contrast means.
func DefaultFeatureLayout() FeatureLayout {
	return FeatureLayout{MFCC: 13, Chroma: 12, Contrast: 7}
}

// Dimension returns the total vector length for the layout.
func (l FeatureLayout) Dimension() int {
	return l.MFCC + l.Chroma + l.Contrast
}
