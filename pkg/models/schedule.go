package models

import "time"

// ScheduleEntry records the last successful run of a periodic task.
// LastRun is nil before the first run; a task with no prior run is
// immediately due.
type ScheduleEntry struct {
	TaskID  string     `json:"task_id"`
	LastRun *time.Time `json:"last_run,omitempty"`
}
