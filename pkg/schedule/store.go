// Package schedule persists when each periodic task last ran successfully,
// so interval enforcement survives restarts instead of depending on
// process uptime.
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/store"
)

// Store reads and writes per-task last-run timestamps.
type Store struct {
	db *sql.DB
}

// New creates a Store over the shared database.
func New(st *store.Store) *Store {
	return &Store{db: st.DB()}
}

// IsDue reports whether taskID is eligible to run: no prior run recorded,
// or at least minInterval has elapsed since the last one.
func (s *Store) IsDue(ctx context.Context, taskID string, minInterval time.Duration, now time.Time) (bool, error) {
	last, ok, err := s.LastRun(ctx, taskID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return now.Sub(last) >= minInterval, nil
}

// RecordRun persists lastRun = now for taskID, synchronously. Callers
// invoke it only after the task's work completed; recording before, or on
// a failed attempt, would let a crash permanently skip a cycle.
func (s *Store) RecordRun(ctx context.Context, taskID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_state (task_id, last_run) VALUES (?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET last_run = excluded.last_run`,
		taskID, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Entries returns every persisted schedule row, for introspection.
func (s *Store) Entries(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, last_run FROM schedule_state`)
	if err != nil {
		return nil, fmt.Errorf("schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var (
			e    models.ScheduleEntry
			last sql.NullTime
		)
		if err := rows.Scan(&e.TaskID, &last); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		if last.Valid {
			t := last.Time
			e.LastRun = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastRun returns the last successful run of taskID, with ok=false when
// the task has never run.
func (s *Store) LastRun(ctx context.Context, taskID string) (time.Time, bool, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run FROM schedule_state WHERE task_id = ?`, taskID,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("schedule lookup: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}
