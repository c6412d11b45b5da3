// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package deadletter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

const (
	prefixDead     = "dead:"
	prefixResolved = "resolved:"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dead-letter store is closed")

	// ErrNotFound is returned when no pending entry has the given id.
	ErrNotFound = errors.New("dead-letter entry not found")

	// ErrEmptyID is returned for operations given an empty entry id.
	ErrEmptyID = errors.New("dead-letter entry id is empty")
)

// Entry is a dead-lettered ingestion event.
type Entry struct {
	ID    string                `json:"id"`
	Event models.IngestionEvent `json:"event"`

	// Stage is the ingest state the event failed in.
	Stage string `json:"stage"`

	// Error is the last error observed while processing the event.
	Error string `json:"error"`

	// Attempts is the number of attempts made by the ingest retry policy.
	Attempts int `json:"attempts"`

	FailedAt time.Time `json:"failed_at"`

	ReplayCount  int        `json:"replay_count"`
	LastReplayAt *time.Time `json:"last_replay_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Stats contains dead-letter counters for monitoring.
type Stats struct {
	Pending       int64     `json:"pending"`
	Resolved      int64     `json:"resolved"`
	TotalAdded    int64     `json:"total_added"`
	TotalReplayed int64     `json:"total_replayed"`
	TotalDeleted  int64     `json:"total_deleted"`
	OldestPending time.Time `json:"oldest_pending,omitempty"`
}

// Store persists dead-lettered events in BadgerDB.
type Store struct {
	db     *badger.DB
	config Config
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool

	totalAdded    atomic.Int64
	totalReplayed atomic.Int64
	totalDeleted  atomic.Int64
}

// Open opens or creates the dead-letter store at cfg.Path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{
		db:     db,
		config: cfg,
		logger: logger.With().Str("component", "deadletter").Logger(),
		now:    time.Now,
	}
	s.refreshGauges(context.Background())

	s.logger.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Bool("compression", cfg.Compression).
		Msg("Dead-letter store opened")
	return s, nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Put persists an entry and returns its id. A missing ID or FailedAt is filled in.
func (s *Store) Put(ctx context.Context, entry *Entry) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if entry == nil {
		return "", errors.New("nil dead-letter entry")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = s.now().UTC()
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return s.setEntry(txn, prefixDead, entry, s.config.EntryTTL)
	}); err != nil {
		return "", fmt.Errorf("write dead-letter entry: %w", err)
	}

	s.totalAdded.Add(1)
	metrics.RecordDeadLetter(entry.Stage)
	s.refreshGauges(ctx)

	s.logger.Warn().
		Str("entry_id", entry.ID).
		Str("user_id", entry.Event.UserID).
		Str("track_path", entry.Event.TrackPath).
		Str("stage", entry.Stage).
		Int("attempts", entry.Attempts).
		Str("error", entry.Error).
		Msg("Event dead-lettered")
	return entry.ID, nil
}

// Get returns the pending entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrEmptyID
	}

	var entry *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getEntry(txn, prefixDead+id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns up to limit pending entries, oldest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	entries, err := s.scan(ctx, prefixDead)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Delete removes a pending entry without replaying it.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if id == "" {
		return ErrEmptyID
	}

	key := []byte(prefixDead + id)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get dead-letter entry: %w", err)
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	s.totalDeleted.Add(1)
	metrics.RecordDeadLetterRemoval()
	s.refreshGauges(ctx)
	return nil
}

// Resolve moves a pending entry to the resolved set after a successful replay.
func (s *Store) Resolve(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if id == "" {
		return ErrEmptyID
	}

	now := s.now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, prefixDead+id)
		if err != nil {
			return err
		}
		entry.ReplayCount++
		entry.LastReplayAt = &now
		entry.ResolvedAt = &now

		if err := s.setEntry(txn, prefixResolved, entry, s.config.ResolvedTTL); err != nil {
			return err
		}
		return txn.Delete([]byte(prefixDead + id))
	})
	if err != nil {
		return err
	}

	s.totalReplayed.Add(1)
	metrics.RecordDeadLetterRemoval()
	s.refreshGauges(ctx)
	return nil
}

// RecordReplayFailure bumps the replay counter of a pending entry and stores the error.
func (s *Store) RecordReplayFailure(ctx context.Context, id string, replayErr error) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrEmptyID
	}

	now := s.now().UTC()
	var updated *Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, prefixDead+id)
		if err != nil {
			return err
		}
		entry.ReplayCount++
		entry.LastReplayAt = &now
		if replayErr != nil {
			entry.Error = replayErr.Error()
		}
		updated = entry
		return s.setEntry(txn, prefixDead, entry, s.config.EntryTTL)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Count returns the number of pending entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.countPrefix(ctx, prefixDead)
}

// Stats returns counters and the pending/resolved totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	pending, err := s.scan(ctx, prefixDead)
	if err != nil {
		return Stats{}, err
	}
	resolved, err := s.countPrefix(ctx, prefixResolved)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Pending:       int64(len(pending)),
		Resolved:      resolved,
		TotalAdded:    s.totalAdded.Load(),
		TotalReplayed: s.totalReplayed.Load(),
		TotalDeleted:  s.totalDeleted.Load(),
	}
	if len(pending) > 0 {
		stats.OldestPending = pending[0].FailedAt
	}
	return stats, nil
}

// RunGC reclaims value log space. It returns the number of files rewritten.
func (s *Store) RunGC() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	rewritten := 0
	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return rewritten, nil
		}
		if err != nil {
			return rewritten, fmt.Errorf("value log GC: %w", err)
		}
		rewritten++
	}
}

// Close closes the underlying database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	s.logger.Info().Msg("Dead-letter store closed")
	return nil
}

func (s *Store) setEntry(txn *badger.Txn, prefix string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	e := badger.NewEntry([]byte(prefix+entry.ID), data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return txn.SetEntry(e)
}

func getEntry(txn *badger.Txn, key string) (*Entry, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dead-letter entry: %w", err)
	}

	var entry Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

// scan returns every entry under prefix ordered by FailedAt.
func (s *Store) scan(ctx context.Context, prefix string) ([]*Entry, error) {
	var entries []*Entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				s.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping malformed dead-letter entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate dead-letter entries: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FailedAt.Before(entries[j].FailedAt)
	})
	return entries, nil
}

func (s *Store) countPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count dead-letter entries: %w", err)
	}
	return count, nil
}

func (s *Store) refreshGauges(ctx context.Context) {
	pending, err := s.scan(ctx, prefixDead)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to refresh dead-letter gauges")
		return
	}
	var oldestAge float64
	if len(pending) > 0 {
		oldestAge = s.now().Sub(pending[0].FailedAt).Seconds()
	}
	metrics.UpdateDeadLetterGauges(int64(len(pending)), oldestAge)
}

// newID returns a time-ordered id so keys iterate roughly in failure order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
