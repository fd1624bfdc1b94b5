// Package status assembles the read-only introspection view: budget
// state, per-task schedule state, and recent ledger writes. Nothing in
// here mutates state or performs a billable operation.
package status

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/ledger"
	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
)

// DefaultRecentWrites is how many ledger writes a report includes.
const DefaultRecentWrites = 10

// Reporter produces StatusReports from the live components.
type Reporter struct {
	tracker quota.Tracker
	sched   *schedule.Store
	ledger  *ledger.Ledger
	cfg     *config.Config
	recentN int
}

// New creates a Reporter.
func New(tracker quota.Tracker, sched *schedule.Store, l *ledger.Ledger, cfg *config.Config) *Reporter {
	return &Reporter{tracker: tracker, sched: sched, ledger: l, cfg: cfg, recentN: DefaultRecentWrites}
}

// Report returns the full introspection snapshot as of now.
func (r *Reporter) Report(ctx context.Context, now time.Time) (models.StatusReport, error) {
	period, err := r.tracker.Current(ctx, now)
	if err != nil {
		return models.StatusReport{}, fmt.Errorf("status: %w", err)
	}

	entries, err := r.sched.Entries(ctx)
	if err != nil {
		return models.StatusReport{}, fmt.Errorf("status: %w", err)
	}
	lastRuns := make(map[string]*time.Time, len(entries))
	for _, e := range entries {
		lastRuns[e.TaskID] = e.LastRun
	}

	taskIDs := make([]string, 0, len(r.cfg.Tasks))
	for id := range r.cfg.Tasks {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)

	tasks := make([]models.TaskStatus, 0, len(taskIDs))
	for _, id := range taskIDs {
		tc := r.cfg.Tasks[id]
		ts := models.TaskStatus{TaskID: id, Interval: tc.Interval, Due: true, LastRun: lastRuns[id]}
		if ts.LastRun != nil {
			ts.Due = now.Sub(*ts.LastRun) >= tc.Interval
		}
		tasks = append(tasks, ts)
	}

	recent, err := r.ledger.Recent(ctx, r.recentN)
	if err != nil {
		return models.StatusReport{}, fmt.Errorf("status: %w", err)
	}

	remaining := period.Ceiling - period.UnitsConsumed
	if remaining < 0 {
		remaining = 0
	}

	return models.StatusReport{
		PeriodID:       period.PeriodID,
		UnitsConsumed:  period.UnitsConsumed,
		Ceiling:        period.Ceiling,
		Remaining:      remaining,
		Tasks:          tasks,
		LedgerDegraded: r.ledger.Degraded(),
		RecentWrites:   recent,
	}, nil
}
