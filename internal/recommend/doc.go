// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package recommend turns similarity rankings into user-level results.
//
// Two views are offered and they are deliberately separate operations:
//
//   - Recommendations (per-track view): for each track in the user's library, the
//     candidate tracks of other users ranked by similarity.
//   - LibraryRanking (library view): the user's own tracks ranked by the sum of
//     their similarity to every candidate. It does not recommend anything.
//
// Both views come from one similarity.Engine.Compare call over stored vectors.
// The Engine recomputes them after every ingestion and publishes a Snapshot to a
// Registry; queries read the latest snapshot. A user without tracks receives the
// explicit empty result, never an error.
//
//	engine, err := recommend.NewEngine(cfg, store, logger)
//	snap, err := engine.Recompute(ctx, "alice")
//	result, err := engine.Recommendations(ctx, "alice")
//	ranking, err := engine.LibraryRanking(ctx, "alice")
package recommend
