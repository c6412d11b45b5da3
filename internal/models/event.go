// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/cadence/internal/validation"
)

// IngestionEvent announces new content for a user.
// Only UserID and TrackPath are part of the contract; the rest is transport metadata.
type IngestionEvent struct {
	UserID     string    `json:"user_id" validate:"required,notblank,max=256"`
	TrackPath  string    `json:"track_path" validate:"required,notblank,max=4096"`
	EventID    string    `json:"event_id,omitempty" validate:"omitempty,max=64"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// NewIngestionEvent creates an event with a fresh EventID and timestamp.
func NewIngestionEvent(userID, trackPath string) *IngestionEvent {
	return &IngestionEvent{
		UserID:     userID,
		TrackPath:  trackPath,
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
	}
}

// Key returns the idempotence key of the event: the (user_id, track_path) pair.
func (e *IngestionEvent) Key() string {
	return e.UserID + "\x00" + e.TrackPath
}

// dedupNamespace scopes the name-based UUIDs returned by DedupID.
var dedupNamespace = uuid.MustParse("6f1c7a52-3b8e-4d0a-9c1e-2f4b5d6e7a80")

// DedupID returns a stable UUID derived from Key. Events announcing the same track
// for the same user share it, whatever their EventID.
func (e *IngestionEvent) DedupID() string {
	return uuid.NewSHA1(dedupNamespace, []byte(e.Key())).String()
}

// Validate checks the required fields.
func (e *IngestionEvent) Validate() error {
	if verr := validation.ValidateStruct(e); verr != nil {
		return verr
	}
	return nil
}
