package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pureslurp/InChristAI/pkg/store"
)

func newTestSchedule(t *testing.T) *Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st)
}

func TestNeverRunIsDue(t *testing.T) {
	s := newTestSchedule(t)

	due, err := s.IsDue(context.Background(), "prayer-search", 72*time.Hour, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, due)

	_, ok, err := s.LastRun(context.Background(), "prayer-search")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntervalGate(t *testing.T) {
	s := newTestSchedule(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, "prayer-search", start))

	// One day after a run with a three-day interval: still blocked.
	due, err := s.IsDue(ctx, "prayer-search", 72*time.Hour, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, due)

	// Exactly at the boundary counts as due.
	due, err = s.IsDue(ctx, "prayer-search", 72*time.Hour, start.Add(72*time.Hour))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRecordRunOverwrites(t *testing.T) {
	s := newTestSchedule(t)
	ctx := context.Background()
	first := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)

	require.NoError(t, s.RecordRun(ctx, "check-mentions", first))
	require.NoError(t, s.RecordRun(ctx, "check-mentions", second))

	last, ok, err := s.LastRun(ctx, "check-mentions")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(second))
}

func TestIntervalSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, New(st).RecordRun(ctx, "daily-post", start))
	require.NoError(t, st.Close())

	// A restart an hour later must not make the task due again.
	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	due, err := New(st).IsDue(ctx, "daily-post", 24*time.Hour, start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestEntries(t *testing.T) {
	s := newTestSchedule(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.RecordRun(ctx, "check-mentions", now))
	require.NoError(t, s.RecordRun(ctx, "daily-post", now.Add(time.Hour)))

	entries, err = s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotNil(t, e.LastRun, "entry %s should carry a last run", e.TaskID)
	}
}

func TestTasksAreIndependent(t *testing.T) {
	s := newTestSchedule(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, "check-mentions", now))

	due, err := s.IsDue(ctx, "daily-post", 24*time.Hour, now)
	require.NoError(t, err)
	assert.True(t, due)
}
