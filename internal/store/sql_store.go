// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)

const (
	insertUserSQL = `INSERT INTO users (user_id, created_at) VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`

	insertTrackSQL = `INSERT INTO tracks (user_id, track_path, features, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, track_path) DO NOTHING`

	trackColumns = `track_id, user_id, track_path, features, dimension, created_at`

	selectTrackSQL = `SELECT ` + trackColumns + ` FROM tracks
		WHERE user_id = ? AND track_path = ?`

	selectByUserSQL = `SELECT ` + trackColumns + ` FROM tracks
		WHERE user_id = ? ORDER BY track_id`

	selectExcludingUserSQL = `SELECT ` + trackColumns + ` FROM tracks
		WHERE user_id <> ? ORDER BY track_id`

	countUsersSQL  = `SELECT COUNT(*) FROM users`
	countTracksSQL = `SELECT COUNT(*) FROM tracks`
)

// schemaTimeout bounds schema creation at startup.
const schemaTimeout = 60 * time.Second

// trackRow is the tracks table as scanned by sqlx.
type trackRow struct {
	ID        int64  `db:"track_id"`
	UserID    string `db:"user_id"`
	TrackPath string `db:"track_path"`
	Features  []byte `db:"features"`
	Dimension int    `db:"dimension"`
	CreatedAt int64  `db:"created_at"`
}

// SQLStore is the Store implementation shared by all backends.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	logger  zerolog.Logger
	closed  atomic.Bool
	now     func() time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newSQLStore(db *sqlx.DB, d dialect, logger zerolog.Logger) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger.With().Str("component", "store").Str("backend", d.name).Logger(),
		now:     time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := s.createSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// createSchema creates the tables if they do not exist
func (s *SQLStore) createSchema(ctx context.Context) error {
	for _, query := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return s.wrap("create_schema", fmt.Errorf("failed to execute %q: %w", firstLine(query), err))
		}
	}
	s.logger.Debug().Int("statements", len(s.dialect.schema)).Msg("Track store schema ready")
	return nil
}

// Backend returns the backend name.
func (s *SQLStore) Backend() string {
	return s.dialect.name
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// UpsertTrack stores the track unless (userID, trackPath) already exists, then
// returns the stored row. A new track also creates its user row. All steps run in
// one transaction.
func (s *SQLStore) UpsertTrack(ctx context.Context, userID, trackPath string, vec models.FeatureVector) (models.Track, bool, error) {
	const op = "upsert_track"
	start := time.Now()

	track, created, err := s.upsertTrack(ctx, userID, trackPath, vec)
	err = s.finish(op, start, err)
	return track, created, err
}

func (s *SQLStore) upsertTrack(ctx context.Context, userID, trackPath string, vec models.FeatureVector) (models.Track, bool, error) {
	if err := s.checkOpen(); err != nil {
		return models.Track{}, false, err
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(trackPath) == "" {
		return models.Track{}, false, fmt.Errorf("%w: user id and track path are required", ErrInvalidInput)
	}
	if vec.Dim() == 0 {
		return models.Track{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, models.ErrEmptyVector)
	}

	if s.dialect.dimension > 0 {
		if err := vec.CheckDim(s.dialect.dimension); err != nil {
			return models.Track{}, false, err
		}
	}

	features, err := s.dialect.encode(vec)
	if err != nil {
		return models.Track{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Track{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback() //nolint:errcheck // rollback after failure is best-effort
		}
	}()

	var row trackRow
	err = tx.GetContext(ctx, &row, s.db.Rebind(selectTrackSQL), userID, trackPath)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return models.Track{}, false, fmt.Errorf("commit: %w", err)
		}
		committed = true
		track, err := s.toTrack(row)
		return track, false, err
	case !errors.Is(err, sql.ErrNoRows):
		return models.Track{}, false, fmt.Errorf("lookup existing track: %w", err)
	}

	now := s.now().UnixMilli()
	if _, err := tx.ExecContext(ctx, s.db.Rebind(insertUserSQL), userID, now); err != nil {
		return models.Track{}, false, fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(insertTrackSQL), userID, trackPath, features, vec.Dim(), now); err != nil {
		return models.Track{}, false, fmt.Errorf("insert track: %w", err)
	}
	if err := tx.GetContext(ctx, &row, s.db.Rebind(selectTrackSQL), userID, trackPath); err != nil {
		return models.Track{}, false, fmt.Errorf("read stored track: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Track{}, false, fmt.Errorf("commit: %w", err)
	}
	committed = true

	track, err := s.toTrack(row)
	return track, true, err
}

// TracksByUser returns the user's tracks ordered by track id.
func (s *SQLStore) TracksByUser(ctx context.Context, userID string) ([]models.Track, error) {
	const op = "tracks_by_user"
	start := time.Now()

	tracks, err := s.selectTracks(ctx, selectByUserSQL, userID)
	return tracks, s.finish(op, start, err)
}

// TracksExcludingUser returns every track not owned by the user, ordered by track id.
func (s *SQLStore) TracksExcludingUser(ctx context.Context, userID string) ([]models.Track, error) {
	const op = "tracks_excluding_user"
	start := time.Now()

	tracks, err := s.selectTracks(ctx, selectExcludingUserSQL, userID)
	return tracks, s.finish(op, start, err)
}

func (s *SQLStore) selectTracks(ctx context.Context, query, userID string) ([]models.Track, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var rows []trackRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), userID); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(rows))
	for _, row := range rows {
		track, err := s.toTrack(row)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Stats returns row counts.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	const op = "stats"
	start := time.Now()

	stats := Stats{Backend: s.dialect.name}
	err := s.checkOpen()
	if err == nil {
		err = s.db.GetContext(ctx, &stats.Users, countUsersSQL)
	}
	if err == nil {
		err = s.db.GetContext(ctx, &stats.Tracks, countTracksSQL)
	}
	if err == nil {
		metrics.UpdateStoreTracks(stats.Tracks)
	}
	return stats, s.finish(op, start, err)
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	const op = "ping"
	start := time.Now()

	err := s.checkOpen()
	if err == nil {
		err = s.db.PingContext(ctx)
	}
	return s.finish(op, start, err)
}

// Close closes the connection pool. It is safe to call more than once.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info().Msg("Closing track store")
	return s.db.Close()
}

func (s *SQLStore) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// toTrack decodes a stored row. A row whose vector cannot be decoded is reported
// as invalid input so it is not retried forever.
func (s *SQLStore) toTrack(row trackRow) (models.Track, error) {
	vec, err := s.dialect.decode(row.Features)
	if err != nil {
		return models.Track{}, fmt.Errorf("%w: track %d: %v", ErrInvalidInput, row.ID, err)
	}
	if vec.Dim() != row.Dimension {
		return models.Track{}, fmt.Errorf("track %d: %w", row.ID,
			&models.DimensionMismatchError{Want: row.Dimension, Got: vec.Dim()})
	}

	track, err := models.NewTrack(row.ID, row.UserID, row.TrackPath, vec)
	if err != nil {
		return models.Track{}, fmt.Errorf("%w: track %d: %v", ErrInvalidInput, row.ID, err)
	}
	track.CreatedAt = time.UnixMilli(row.CreatedAt).UTC()
	return track, nil
}

// finish records metrics and wraps a failure as *StoreError.
func (s *SQLStore) finish(op string, start time.Time, err error) error {
	if err == nil {
		metrics.RecordStoreOperation(s.dialect.name, op, time.Since(start), "")
		return nil
	}
	wrapped := s.wrap(op, err)
	metrics.RecordStoreOperation(s.dialect.name, op, time.Since(start), wrapped.Kind())
	return wrapped
}

func (s *SQLStore) wrap(op string, err error) *StoreError {
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return &StoreError{Backend: s.dialect.name, Op: op, Err: err}
}

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		return query[:i]
	}
	return query
}
