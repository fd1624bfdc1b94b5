package models

// CallKind identifies a category of billable external read operation.
// Each kind carries its own cost rule, because the external service bills
// some reads per returned item and others at a flat rate.
type CallKind string

const (
	// KindMentionsList fetches recent mentions; billed per returned mention.
	KindMentionsList CallKind = "mentions-list"
	// KindSearchFetch runs a tweet search; billed per returned result.
	KindSearchFetch CallKind = "search-fetch"
	// KindStatusProbe is a flat-cost availability check.
	KindStatusProbe CallKind = "status-probe"
)

// BudgetPeriod is the persisted consumption state for one billing window.
// PeriodID is derived from the clock (UTC year-month), never stored as a
// wall time alone, so it can always be recomputed after a restart.
type BudgetPeriod struct {
	PeriodID      string `json:"period_id"`
	UnitsConsumed int    `json:"units_consumed"`
	Ceiling       int    `json:"ceiling"`
}

// Charge is the durable result of charging units for a completed external
// read. The charge always sticks even when it crosses the ceiling; the
// OverBudget flag tells the caller to refuse future operations, not to
// retract this one.
type Charge struct {
	PeriodID   string   `json:"period_id"`
	Kind       CallKind `json:"kind"`
	Units      int      `json:"units"`
	Consumed   int      `json:"consumed"`
	Remaining  int      `json:"remaining"`
	OverBudget bool     `json:"over_budget"`
}
