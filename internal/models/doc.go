// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package models defines the typed records shared across Cadence.

Key Components:

  - FeatureVector: immutable fixed-length acoustic embedding of a track
  - Track: a persisted (user, content, vector) record
  - User: owner of zero or more tracks
  - IngestionEvent: the (user_id, track_path) record delivered by the event stream
  - RecommendationResult: per-track candidate rankings for one user
  - LibraryRanking: a user's own tracks ranked by aggregate similarity
  - APIResponse: standardized HTTP response wrapper

Invariants are enforced by the constructors (NewFeatureVector, NewTrack, NewUser)
rather than checked at use sites. A FeatureVector never changes after construction
and every accessor returns a copy of its components.

Binary Encoding:

Feature vectors are stored as little-endian IEEE-754 float64 values, eight bytes per
component and no header. The dimension is implied by the payload length:

	data := models.EncodeVector(vec)
	vec, err := models.DecodeVector(data)
*/
package models
