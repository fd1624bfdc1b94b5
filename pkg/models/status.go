package models

import "time"

// TaskStatus is the due/not-due view of one periodic task.
type TaskStatus struct {
	TaskID   string        `json:"task_id"`
	Interval time.Duration `json:"interval"`
	LastRun  *time.Time    `json:"last_run,omitempty"`
	Due      bool          `json:"due"`
}

// StatusReport is the read-only introspection surface: budget state,
// per-task schedule state, and the most recent ledger writes.
type StatusReport struct {
	PeriodID       string              `json:"period_id"`
	UnitsConsumed  int                 `json:"units_consumed"`
	Ceiling        int                 `json:"ceiling"`
	Remaining      int                 `json:"remaining"`
	Tasks          []TaskStatus        `json:"tasks"`
	LedgerDegraded bool                `json:"ledger_degraded"`
	RecentWrites   []InteractionRecord `json:"recent_writes"`
}
