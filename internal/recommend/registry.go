// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/models"
)

// Snapshot is the published pair of views for one user.
type Snapshot struct {
	UserID          string
	Recommendations *models.RecommendationResult
	Ranking         *models.LibraryRanking
	LibrarySize     int
	CandidateCount  int
	ComputedAt      time.Time

	// Sequence orders snapshots by the moment their inputs were read.
	Sequence uint64
}

// IsEmpty reports whether the user had no tracks when the snapshot was computed.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || s.LibrarySize == 0
}

// registryEntry holds a published snapshot.
type registryEntry struct {
	snapshot  *Snapshot
	storedAt  time.Time
	expiresAt time.Time // zero means no expiry
}

func (e registryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Registry holds the most recently published snapshot per user.
// Snapshots are replaced as a whole, so readers never see a partial update.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]registryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewRegistry creates a Registry. A zero ttl disables expiry.
func NewRegistry(ttl time.Duration, maxEntries int) *Registry {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Registry{
		entries:    make(map[string]registryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the live snapshot for a user, or nil.
func (r *Registry) Get(userID string) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userID]
	if !ok || entry.expired(r.now()) {
		return nil
	}
	return entry.snapshot
}

// Publish stores a snapshot unless a snapshot computed from newer inputs is
// already present. It reports whether the snapshot was stored.
func (r *Registry) Publish(snap *Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.entries[snap.UserID]; ok && !existing.expired(now) &&
		existing.snapshot.Sequence > snap.Sequence {
		return false
	}

	if _, ok := r.entries[snap.UserID]; !ok && len(r.entries) >= r.maxEntries {
		r.evictExpiredLocked(now)
		if len(r.entries) >= r.maxEntries {
			r.evictOldestLocked()
		}
	}

	entry := registryEntry{snapshot: snap, storedAt: now}
	if r.ttl > 0 {
		entry.expiresAt = now.Add(r.ttl)
	}
	r.entries[snap.UserID] = entry
	return true
}

// Invalidate drops the snapshot for a user.
func (r *Registry) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// PurgeExpired removes expired snapshots and returns how many were removed.
func (r *Registry) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictExpiredLocked(r.now())
}

// Len returns the number of stored snapshots, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// evictExpiredLocked removes expired entries.
// Must be called with mu held.
func (r *Registry) evictExpiredLocked(now time.Time) int {
	removed := 0
	for key, entry := range r.entries {
		if entry.expired(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldestLocked removes the entry stored first.
// Must be called with mu held.
func (r *Registry) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, entry := range r.entries {
		if !found || entry.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, entry.storedAt, true
		}
	}
	if found {
		delete(r.entries, oldestKey)
	}
}
