// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/models"
)

// Serializer handles ingestion event encoding for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal validates an event and converts it to JSON.
func (s *Serializer) Marshal(event *models.IngestionEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("marshal event: nil event")
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON to an event. Field validation is left to the coordinator.
func (s *Serializer) Unmarshal(data []byte) (*models.IngestionEvent, error) {
	var event models.IngestionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// SerializeEvent marshals an event with the default serializer.
func SerializeEvent(event *models.IngestionEvent) ([]byte, error) {
	return NewSerializer().Marshal(event)
}

// DeserializeEvent unmarshals an event with the default serializer.
func DeserializeEvent(data []byte) (*models.IngestionEvent, error) {
	return NewSerializer().Unmarshal(data)
}
