// Package history is the write-only Postgres archive of finished workouts
// and quick logs. Archived rows are never read back into live sessions.
package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Jethrochang07/FlyWJ/bot/workout"
	"github.com/Jethrochang07/FlyWJ/core/logger"
	"log/slog"
)

// Store archives finalized workout data. It implements workout.Archiver.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ArchiveWorkout writes one snapshot of the ended session and all its
// entries in a single transaction. Ending the same session again after a
// same-day continuation produces another snapshot; deduplication is not
// attempted here.
func (s *Store) ArchiveWorkout(ctx context.Context, userID int64, sess *workout.Session) error {
	if sess == nil {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var workoutID int64
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO workouts (user_id, workout_date, day, ended_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, sess.Date, sess.Day, time.Now().UTC(),
	).Scan(&workoutID)
	if err != nil {
		return fmt.Errorf("history: insert workout: %w", err)
	}

	for i, entry := range sess.Entries {
		switch e := entry.(type) {
		case workout.LiftEntry:
			reps := make([]string, len(e.Reps))
			for j, r := range e.Reps {
				reps[j] = strconv.Itoa(r)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO workout_entries
				 (workout_id, position, kind, equipment, exercise, sets, reps, weights, label)
				 VALUES ($1, $2, 'lift', $3, $4, $5, $6, $7, $8)`,
				workoutID, i, e.Equipment, e.Exercise, e.Sets,
				strings.Join(reps, ","), strings.Join(e.Weights, ","), e.Label(),
			)
		case workout.CardioEntry:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO workout_entries
				 (workout_id, position, kind, cardio_mode, degree, speed, label)
				 VALUES ($1, $2, 'cardio', $3, $4, $5, $6)`,
				workoutID, i, string(e.Mode), e.Degree, e.Speed, e.Label(),
			)
		default:
			err = fmt.Errorf("history: unknown entry type %T", entry)
		}
		if err != nil {
			return fmt.Errorf("history: insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	logger.LogEvent(ctx, logger.History, slog.LevelDebug, "archive.workout",
		slog.Int64("user_id", userID),
		slog.Int64("workout_id", workoutID),
		slog.Int("entries", len(sess.Entries)),
	)
	return nil
}

// ArchiveQuickLog writes one Run/Other activity row.
func (s *Store) ArchiveQuickLog(ctx context.Context, userID int64, q workout.QuickLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quick_logs (user_id, activity, details, logged_at)
		 VALUES ($1, $2, $3, $4)`,
		userID, q.Activity, q.Details, q.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("history: insert quick log: %w", err)
	}

	logger.LogEvent(ctx, logger.History, slog.LevelDebug, "archive.quicklog",
		slog.Int64("user_id", userID),
		slog.String("activity", q.Activity),
	)
	return nil
}
