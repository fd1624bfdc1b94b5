package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
	"github.com/pureslurp/InChristAI/pkg/store"
)

type testCore struct {
	store      *store.Store
	tracker    *quota.SQLiteTracker
	sched      *schedule.Store
	dispatcher *Dispatcher
}

func newTestCore(t *testing.T, ceiling int) *testCore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	model := quota.DefaultCostModel()
	tracker := quota.NewTracker(st, model, ceiling)
	sched := schedule.New(st)
	return &testCore{
		store:      st,
		tracker:    tracker,
		sched:      sched,
		dispatcher: New(tracker, sched, model),
	}
}

func mentionsOp(fetch FetchFunc) Operation {
	return Operation{
		TaskID:          "check-mentions",
		Kind:            models.KindMentionsList,
		MinInterval:     6 * time.Hour,
		ExpectedResults: 25,
		Fetch:           fetch,
	}
}

func TestRunSettlesAndCharges(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		return 25, nil
	}), now)
	require.NoError(t, err)

	assert.Equal(t, Settled, out.State)
	assert.False(t, out.Skipped())
	// Charged with the actual result size, not the projection.
	assert.Equal(t, 25, out.Charge.Units)
	assert.Equal(t, 75, out.Charge.Remaining)

	last, ok, err := c.sched.LastRun(ctx, "check-mentions")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(now))
}

func TestRunChargesActualNotExpected(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	// Projection said 25; the service returned 3.
	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		return 3, nil
	}), now)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Charge.Units)

	remaining, err := c.tracker.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 97, remaining)
}

func TestRunSkipsWhenNotDue(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.sched.RecordRun(ctx, "check-mentions", now))

	fetched := false
	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		fetched = true
		return 0, nil
	}), now.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, out.Skipped())
	assert.Equal(t, SkipNotDue, out.Skip)
	assert.False(t, fetched, "a not-due cycle must never reach the service")
}

func TestRunSkipsWhenProjectionExceedsBudget(t *testing.T) {
	c := newTestCore(t, 20)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	fetched := false
	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		fetched = true
		return 0, nil
	}), now)
	require.NoError(t, err)

	// Projected 25 against a remaining budget of 20: the read must not
	// happen, and nothing is charged.
	assert.True(t, out.Skipped())
	assert.Equal(t, SkipOverBudget, out.Skip)
	assert.False(t, fetched)

	remaining, err := c.tracker.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 20, remaining)
}

func TestRunAmbiguousOutcomeChargesNothing(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	op := mentionsOp(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	op.Timeout = 10 * time.Millisecond

	out, err := c.dispatcher.Run(ctx, op, now)
	require.ErrorIs(t, err, ErrAmbiguousOutcome)
	assert.Equal(t, InFlight, out.State)

	// No charge, no run record: the cycle stays fully retryable.
	remaining, err := c.tracker.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 100, remaining)

	_, ok, err := c.sched.LastRun(ctx, "check-mentions")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunDefiniteFetchFailure(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	boom := errors.New("service rejected the request")
	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		return 0, boom
	}), now)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAmbiguousOutcome)
	assert.Equal(t, InFlight, out.State)

	// A definite failure leaves the task due for the caller's retry.
	due, err := c.sched.IsDue(ctx, "check-mentions", 6*time.Hour, now)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRunEmptyResultStillCharges(t *testing.T) {
	c := newTestCore(t, 100)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	out, err := c.dispatcher.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		return 0, nil
	}), now)
	require.NoError(t, err)

	// The call reached the service; minimum one unit.
	assert.Equal(t, Settled, out.State)
	assert.Equal(t, 1, out.Charge.Units)
}

func TestRunStatePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	model := quota.DefaultCostModel()
	d := New(quota.NewTracker(st, model, 100), schedule.New(st), model)

	out, err := d.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		return 25, nil
	}), now)
	require.NoError(t, err)
	require.Equal(t, Settled, out.State)
	require.NoError(t, st.Close())

	// After a restart within the interval, the cycle is skipped and the
	// consumed units are still on the books.
	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	tracker := quota.NewTracker(st, model, 100)
	d = New(tracker, schedule.New(st), model)

	out, err = d.Run(ctx, mentionsOp(func(ctx context.Context) (int, error) {
		t.Fatal("fetch must not run within the interval")
		return 0, nil
	}), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SkipNotDue, out.Skip)

	remaining, err := tracker.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 75, remaining)
}

func TestCrashBetweenChargeAndRunRecord(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Simulate a crash after the charge was made durable but before the
	// run record: only the charge exists.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	model := quota.DefaultCostModel()
	_, err = quota.NewTracker(st, model, 100).Charge(ctx, models.KindMentionsList, 25, now)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	tracker := quota.NewTracker(st, model, 100)
	sched := schedule.New(st)

	// The units stayed counted and the task is still due: the work may
	// re-attempt, the charge is never lost or doubled retroactively.
	remaining, err := tracker.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 75, remaining)

	due, err := sched.IsDue(ctx, "check-mentions", 6*time.Hour, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRunRejectsNilFetch(t *testing.T) {
	c := newTestCore(t, 100)

	op := mentionsOp(nil)
	_, err := c.dispatcher.Run(context.Background(), op, time.Now().UTC())
	require.Error(t, err)
}
