// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package ingest

// State is a step of the per-event ingestion state machine.
type State int

const (
	StateReceived State = iota
	StateExtracting
	StatePersisting
	StateRecomputing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateRecomputing:
		return "recomputing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next lists the allowed transitions. Received moves straight to Recomputing only
// when a stored track's recompute is replayed.
var next = map[State][]State{
	StateReceived:    {StateExtracting, StateRecomputing, StateFailed},
	StateExtracting:  {StatePersisting, StateFailed},
	StatePersisting:  {StateRecomputing, StateFailed},
	StateRecomputing: {StateDone, StateFailed},
}

// CanTransition reports whether the machine may move from s to to.
func (s State) CanTransition(to State) bool {
	for _, allowed := range next[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Disposition says what happened to a failed event.
type Disposition int

const (
	// DispositionNone is used for events that reached StateDone.
	DispositionNone Disposition = iota

	// DispositionDropped events are logged and discarded (undecodable content, invalid events).
	DispositionDropped

	// DispositionDeadLettered events were written to the dead-letter store.
	DispositionDeadLettered

	// DispositionRequeue events should be redelivered by the event source
	// (shutdown in progress, or the dead-letter write itself failed).
	DispositionRequeue
)

func (d Disposition) String() string {
	switch d {
	case DispositionNone:
		return "none"
	case DispositionDropped:
		return "dropped"
	case DispositionDeadLettered:
		return "dead_lettered"
	case DispositionRequeue:
		return "requeue"
	default:
		return "unknown"
	}
}
