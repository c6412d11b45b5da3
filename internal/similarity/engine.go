// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cadence/internal/models"
)

// ErrDimensionMismatch is matched by every dimension failure returned from this package.
var ErrDimensionMismatch = models.ErrDimensionMismatch

// DimensionMismatchError carries the expected and actual vector lengths.
type DimensionMismatchError = models.DimensionMismatchError

// Match is one ranked candidate: its index in the candidate sequence and its score.
type Match struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Result maps each reference index to its ranked candidates.
// len(Result) equals the number of reference vectors.
type Result [][]Match

// Cosine returns the cosine similarity of a and b, in [-1, 1].
// A zero-norm operand yields 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	return dotUnit(unit(a), unit(b)), nil
}

// unit returns x scaled to length 1, or nil for a zero vector. Components are divided
// by the largest magnitude first so the sum of squares neither overflows nor underflows.
func unit(x []float64) []float64 {
	var maxAbs float64
	for _, v := range x {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = v / maxAbs
		sum += out[i] * out[i]
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] /= norm
	}
	return out
}

// dotUnit returns the dot product of two unit vectors clamped to [-1, 1].
// A nil operand yields 0.
func dotUnit(a, b []float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return math.Max(-1, math.Min(1, dot))
}

// Option configures an Engine.
type Option func(*Engine)

// WithDimension makes Compare reject any vector whose length is not d.
func WithDimension(d int) Option {
	return func(e *Engine) {
		e.dimension = d
	}
}

// WithParallelism bounds the number of reference vectors scored concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// Engine computes ranked similarity between vector sets. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	dimension   int
	parallelism int
}

// NewEngine creates an Engine. Without WithDimension the first reference vector sets
// the dimension for each call.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimension returns the configured dimension, or 0 when it is inferred per call.
func (e *Engine) Dimension() int {
	return e.dimension
}

// prepared holds a vector scaled to unit length, nil for a zero vector, so each
// vector is normalized once per call.
type prepared struct {
	unit []float64
}

func prepare(vecs []models.FeatureVector, dim int, role string) ([]prepared, error) {
	out := make([]prepared, len(vecs))
	for i, v := range vecs {
		if err := v.CheckDim(dim); err != nil {
			return nil, fmt.Errorf("%s %d: %w", role, i, err)
		}
		out[i] = prepared{unit: unit(v.Values())}
	}
	return out, nil
}

// Compare scores every reference vector against every candidate vector.
//
// Each reference gets its candidates sorted by score descending; equal scores keep
// their original candidate order. No references yields an empty Result; no candidates
// yields an empty list per reference. Any dimension mismatch fails the whole call.
func (e *Engine) Compare(ctx context.Context, refs, cands []models.FeatureVector) (Result, error) {
	if len(refs) == 0 {
		return Result{}, nil
	}

	dim := e.dimension
	if dim == 0 {
		dim = refs[0].Dim()
	}

	preparedRefs, err := prepare(refs, dim, "reference")
	if err != nil {
		return nil, err
	}
	preparedCands, err := prepare(cands, dim, "candidate")
	if err != nil {
		return nil, err
	}

	result := make(Result, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i := range preparedRefs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result[i] = rank(preparedRefs[i], preparedCands)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// rank scores one reference against all candidates and sorts stably.
func rank(ref prepared, cands []prepared) []Match {
	matches := make([]Match, len(cands))
	for j, c := range cands {
		matches[j] = Match{Index: j, Score: score(ref, c)}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches
}

func score(a, b prepared) float64 {
	return dotUnit(a.unit, b.unit)
}

// Sum returns the total score of a ranked list.
func Sum(matches []Match) float64 {
	var total float64
	for _, m := range matches {
		total += m.Score
	}
	return total
}
