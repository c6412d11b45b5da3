// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package similarity scores feature vectors against each other with cosine similarity
// and produces deterministic ranked candidate lists.
//
// Compare is the single primitive used by both recommendation views:
//
//	engine := similarity.NewEngine(similarity.WithDimension(32))
//	result, err := engine.Compare(ctx, library, candidates)
//	for ref, matches := range result {
//	    // matches are sorted by score descending, ties keep candidate order
//	}
//
// Scoring rules:
//   - score(a, b) = dot(a, b) / (|a| * |b|)
//   - a zero-norm operand scores 0, never NaN
//   - scores are clamped to [-1, 1]; vectors are scaled by their largest component
//     before normalizing, so any finite components are safe
//   - vectors of different length fail with ErrDimensionMismatch; nothing is truncated or padded
//
// Work is spread across reference vectors with an errgroup. Each worker writes only
// its own result slot, so the output never depends on goroutine scheduling.
package similarity
