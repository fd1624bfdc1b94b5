package status

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/ledger"
	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
	"github.com/pureslurp/InChristAI/pkg/store"
)

func newTestReporter(t *testing.T) (*Reporter, *quota.SQLiteTracker, *schedule.Store, *ledger.Ledger) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	tracker := quota.NewTracker(st, quota.DefaultCostModel(), cfg.Quota.Ceiling)
	sched := schedule.New(st)
	ldg := ledger.New(st)
	return New(tracker, sched, ldg, cfg), tracker, sched, ldg
}

func TestReport(t *testing.T) {
	r, tracker, sched, ldg := newTestReporter(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	_, err := tracker.Charge(ctx, models.KindMentionsList, 25, now)
	require.NoError(t, err)
	require.NoError(t, sched.RecordRun(ctx, config.TaskCheckMentions, now))
	require.NoError(t, ldg.MarkHandled(ctx, "m1", "reply-1", now))

	report, err := r.Report(ctx, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2026-08", report.PeriodID)
	assert.Equal(t, 25, report.UnitsConsumed)
	assert.Equal(t, 100, report.Ceiling)
	assert.Equal(t, 75, report.Remaining)
	assert.True(t, report.LedgerDegraded, "a fresh database reads as degraded")

	require.Len(t, report.Tasks, 4)
	byID := make(map[string]models.TaskStatus, len(report.Tasks))
	for _, ts := range report.Tasks {
		byID[ts.TaskID] = ts
	}

	// Mentions ran an hour ago with a 6h interval: not due.
	mentions := byID[config.TaskCheckMentions]
	assert.False(t, mentions.Due)
	require.NotNil(t, mentions.LastRun)
	assert.True(t, mentions.LastRun.Equal(now))

	// The others have never run.
	assert.True(t, byID[config.TaskPrayerSearch].Due)
	assert.Nil(t, byID[config.TaskPrayerSearch].LastRun)
	assert.True(t, byID[config.TaskDailyPost].Due)
	assert.True(t, byID[config.TaskLedgerCleanup].Due)

	require.Len(t, report.RecentWrites, 1)
	assert.Equal(t, "m1", report.RecentWrites[0].InteractionID)
}

func TestReportEmptyState(t *testing.T) {
	r, _, _, _ := newTestReporter(t)

	report, err := r.Report(context.Background(), time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 0, report.UnitsConsumed)
	assert.Equal(t, 100, report.Remaining)
	assert.Empty(t, report.RecentWrites)
	for _, ts := range report.Tasks {
		assert.True(t, ts.Due, "task %s should be due before any run", ts.TaskID)
	}
}

func TestReportRemainingClampsAtZero(t *testing.T) {
	r, tracker, _, _ := newTestReporter(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	_, err := tracker.Charge(ctx, models.KindMentionsList, 120, now)
	require.NoError(t, err)

	report, err := r.Report(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 120, report.UnitsConsumed)
	assert.Equal(t, 0, report.Remaining)
}
