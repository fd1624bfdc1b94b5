// Package quota tracks billable-unit consumption against a hard monthly
// ceiling. The defining property of the cost model is that cost is a
// function of result cardinality, not call count: a single list read that
// returns 25 items charges 25 units when the service bills per item.
package quota

import (
	"time"

	"github.com/pureslurp/InChristAI/pkg/models"
)

// DefaultCeiling is the monthly unit allowance of the external read quota.
const DefaultCeiling = 100

// CostMode selects how a call kind converts a result into units.
type CostMode string

const (
	// CostPerItem charges one unit per returned item, minimum one per call
	// that reached the service.
	CostPerItem CostMode = "per_item"
	// CostFlat charges a fixed number of units per call.
	CostFlat CostMode = "flat"
)

// CostRule is the cost function for one call kind.
type CostRule struct {
	Mode  CostMode
	Units int // flat units; ignored for per-item kinds
}

// CostModel maps call kinds to cost rules. Kinds without an explicit rule
// charge per item, the conservative direction.
type CostModel struct {
	rules map[models.CallKind]CostRule
}

// NewCostModel creates a CostModel from explicit per-kind rules.
func NewCostModel(rules map[models.CallKind]CostRule) *CostModel {
	m := &CostModel{rules: make(map[models.CallKind]CostRule, len(rules))}
	for k, r := range rules {
		m.rules[k] = r
	}
	return m
}

// DefaultCostModel returns the built-in kinds: per-item list and search
// reads, flat-cost status probe.
func DefaultCostModel() *CostModel {
	return NewCostModel(map[models.CallKind]CostRule{
		models.KindMentionsList: {Mode: CostPerItem},
		models.KindSearchFetch:  {Mode: CostPerItem},
		models.KindStatusProbe:  {Mode: CostFlat, Units: 1},
	})
}

// Cost returns the units charged for one invocation of kind that returned
// resultSize items. Every invocation that reached the service costs at
// least one unit, even when zero items came back.
func (m *CostModel) Cost(kind models.CallKind, resultSize int) int {
	rule, ok := m.rules[kind]
	if !ok {
		rule = CostRule{Mode: CostPerItem}
	}

	switch rule.Mode {
	case CostFlat:
		if rule.Units < 1 {
			return 1
		}
		return rule.Units
	default:
		if resultSize < 1 {
			return 1
		}
		return resultSize
	}
}

// Project estimates the units a schedule would consume over one period:
// runsPerPeriod invocations of kind, each returning resultSize items.
// Pure estimation for operator warnings; never blocks execution.
func (m *CostModel) Project(kind models.CallKind, resultSize, runsPerPeriod int) int {
	if runsPerPeriod < 0 {
		runsPerPeriod = 0
	}
	return m.Cost(kind, resultSize) * runsPerPeriod
}

// PeriodID returns the billing window identifier containing now.
// The external quota resets on true calendar-month boundaries, so the
// identifier is the UTC year-month. Pure function of the clock.
func PeriodID(now time.Time) string {
	return now.UTC().Format("2006-01")
}
