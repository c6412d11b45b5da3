// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"testing"
	"time"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(ttl time.Duration, maxEntries int) (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(ttl, maxEntries)
	r.now = clock.Now
	return r, clock
}

func TestRegistry_PublishAndGet(t *testing.T) {
	r, _ := newTestRegistry(0, 10)

	if r.Get("alice") != nil {
		t.Fatal("Get() on empty registry should return nil")
	}

	snap := &Snapshot{UserID: "alice", Sequence: 1}
	if !r.Publish(snap) {
		t.Fatal("Publish() rejected first snapshot")
	}
	if got := r.Get("alice"); got != snap {
		t.Errorf("Get() = %p, want %p", got, snap)
	}
}

func TestRegistry_SequenceOrdering(t *testing.T) {
	r, _ := newTestRegistry(0, 10)

	newer := &Snapshot{UserID: "alice", Sequence: 5}
	older := &Snapshot{UserID: "alice", Sequence: 4}
	replacement := &Snapshot{UserID: "alice", Sequence: 6}

	r.Publish(newer)
	if r.Publish(older) {
		t.Error("Publish() accepted older snapshot")
	}
	if r.Get("alice") != newer {
		t.Error("older snapshot replaced newer one")
	}
	if !r.Publish(replacement) || r.Get("alice") != replacement {
		t.Error("newer snapshot was not published")
	}
}

func TestRegistry_TTL(t *testing.T) {
	r, clock := newTestRegistry(time.Minute, 10)

	r.Publish(&Snapshot{UserID: "alice", Sequence: 1})
	clock.Advance(30 * time.Second)
	if r.Get("alice") == nil {
		t.Fatal("snapshot expired early")
	}

	clock.Advance(31 * time.Second)
	if r.Get("alice") != nil {
		t.Error("expired snapshot still served")
	}

	// An expired snapshot never blocks a publish, even from older inputs.
	if !r.Publish(&Snapshot{UserID: "alice", Sequence: 0}) {
		t.Error("Publish() rejected after expiry")
	}
}

func TestRegistry_PurgeExpired(t *testing.T) {
	r, clock := newTestRegistry(time.Minute, 10)

	r.Publish(&Snapshot{UserID: "alice", Sequence: 1})
	clock.Advance(2 * time.Minute)
	r.Publish(&Snapshot{UserID: "bob", Sequence: 2})

	if removed := r.PurgeExpired(); removed != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", removed)
	}
	if r.Len() != 1 || r.Get("bob") == nil {
		t.Errorf("unexpected registry contents, len = %d", r.Len())
	}
}

func TestRegistry_EvictsOldestWhenFull(t *testing.T) {
	r, clock := newTestRegistry(0, 2)

	r.Publish(&Snapshot{UserID: "alice", Sequence: 1})
	clock.Advance(time.Second)
	r.Publish(&Snapshot{UserID: "bob", Sequence: 2})
	clock.Advance(time.Second)
	r.Publish(&Snapshot{UserID: "carol", Sequence: 3})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if r.Get("alice") != nil {
		t.Error("oldest snapshot was not evicted")
	}
	if r.Get("bob") == nil || r.Get("carol") == nil {
		t.Error("newer snapshots were evicted")
	}

	// Replacing an existing user's snapshot does not evict anyone.
	clock.Advance(time.Second)
	r.Publish(&Snapshot{UserID: "bob", Sequence: 4})
	if r.Get("carol") == nil {
		t.Error("replacement evicted another user")
	}
}

func TestRegistry_Invalidate(t *testing.T) {
	r, _ := newTestRegistry(0, 10)
	r.Publish(&Snapshot{UserID: "alice", Sequence: 1})
	r.Invalidate("alice")
	r.Invalidate("nobody")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
