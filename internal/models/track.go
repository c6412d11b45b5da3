// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyUserID is returned when a user identifier is blank.
	ErrEmptyUserID = errors.New("user_id is required")

	// ErrEmptyTrackPath is returned when a track path is blank.
	ErrEmptyTrackPath = errors.New("track_path is required")
)

// User owns zero or more tracks. A user without tracks is a valid state.
type User struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewUser validates the identifier and returns a User.
func NewUser(userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrEmptyUserID
	}
	return User{UserID: userID}, nil
}

// Track is a persisted record of one piece of content in one user's library.
// TrackPath is an opaque content identifier; two users may reference the same path.
type Track struct {
	ID        int64         `json:"track_id"`
	UserID    string        `json:"user_id"`
	TrackPath string        `json:"track_path"`
	Vector    FeatureVector `json:"-"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// NewTrack builds a Track after checking the owner, the path and the vector.
// The ID is zero until the store assigns one.
func NewTrack(id int64, userID, trackPath string, vec FeatureVector) (Track, error) {
	if strings.TrimSpace(userID) == "" {
		return Track{}, ErrEmptyUserID
	}
	if strings.TrimSpace(trackPath) == "" {
		return Track{}, ErrEmptyTrackPath
	}
	if vec.IsZero() {
		return Track{}, ErrEmptyVector
	}
	return Track{ID: id, UserID: userID, TrackPath: trackPath, Vector: vec}, nil
}

// Vectors returns the feature vectors of tracks in order.
func Vectors(tracks []Track) []FeatureVector {
	out := make([]FeatureVector, len(tracks))
	for i := range tracks {
		out[i] = tracks[i].Vector
	}
	return out
}
