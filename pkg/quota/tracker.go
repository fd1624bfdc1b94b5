package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/store"
)

// Tracker records billable-unit consumption for the current period.
type Tracker interface {
	// Charge applies the cost of a completed external read and persists
	// the new running total before returning. It never fails a charge for
	// crossing the ceiling: the external side effect already happened, so
	// the only acceptable failure direction is under-counting, never
	// losing a charge.
	Charge(ctx context.Context, kind models.CallKind, resultSize int, now time.Time) (models.Charge, error)
	// Remaining returns max(0, ceiling - unitsConsumed) for the period
	// containing now.
	Remaining(ctx context.Context, now time.Time) (int, error)
	// Current returns the persisted state of the period containing now.
	Current(ctx context.Context, now time.Time) (models.BudgetPeriod, error)
}

// SQLiteTracker implements Tracker over the shared store. Consumption is
// keyed by period id, so crossing a period boundary starts a new row at
// zero exactly once and never inherits the old period's count. Stale
// period rows are kept for audit.
type SQLiteTracker struct {
	db      *sql.DB
	model   *CostModel
	ceiling int
}

// NewTracker creates a SQLiteTracker with the given cost model and
// ceiling. A non-positive ceiling falls back to DefaultCeiling.
func NewTracker(st *store.Store, model *CostModel, ceiling int) *SQLiteTracker {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if model == nil {
		model = DefaultCostModel()
	}
	return &SQLiteTracker{db: st.DB(), model: model, ceiling: ceiling}
}

// Charge computes units via the cost model, persists the incremented
// running total synchronously, and reports the post-charge state.
func (t *SQLiteTracker) Charge(ctx context.Context, kind models.CallKind, resultSize int, now time.Time) (models.Charge, error) {
	units := t.model.Cost(kind, resultSize)
	periodID := PeriodID(now)

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO budget_period (period_id, units_consumed, ceiling) VALUES (?, ?, ?)
		 ON CONFLICT(period_id) DO UPDATE SET
			units_consumed = units_consumed + excluded.units_consumed,
			ceiling = excluded.ceiling`,
		periodID, units, t.ceiling,
	)
	if err != nil {
		return models.Charge{}, fmt.Errorf("persist charge: %w", err)
	}

	var consumed int
	err = t.db.QueryRowContext(ctx,
		`SELECT units_consumed FROM budget_period WHERE period_id = ?`, periodID,
	).Scan(&consumed)
	if err != nil {
		return models.Charge{}, fmt.Errorf("read period after charge: %w", err)
	}

	charge := models.Charge{
		PeriodID:   periodID,
		Kind:       kind,
		Units:      units,
		Consumed:   consumed,
		Remaining:  clampRemaining(t.ceiling, consumed),
		OverBudget: consumed > t.ceiling,
	}

	log.Info().
		Str("period", periodID).
		Str("kind", string(kind)).
		Int("units", units).
		Int("consumed", consumed).
		Int("remaining", charge.Remaining).
		Msg("quota: charge applied")
	if charge.OverBudget {
		log.Warn().
			Str("period", periodID).
			Int("consumed", consumed).
			Int("ceiling", t.ceiling).
			Msg("quota: ceiling exceeded, refuse further reads this period")
	}

	return charge, nil
}

// Remaining returns the unused units for the period containing now.
func (t *SQLiteTracker) Remaining(ctx context.Context, now time.Time) (int, error) {
	p, err := t.Current(ctx, now)
	if err != nil {
		return 0, err
	}
	return clampRemaining(p.Ceiling, p.UnitsConsumed), nil
}

// Current returns the period state containing now. A period with no
// charges yet reads as zero consumption against the configured ceiling.
func (t *SQLiteTracker) Current(ctx context.Context, now time.Time) (models.BudgetPeriod, error) {
	periodID := PeriodID(now)

	var consumed int
	err := t.db.QueryRowContext(ctx,
		`SELECT units_consumed FROM budget_period WHERE period_id = ?`, periodID,
	).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BudgetPeriod{PeriodID: periodID, UnitsConsumed: 0, Ceiling: t.ceiling}, nil
	}
	if err != nil {
		return models.BudgetPeriod{}, fmt.Errorf("read period: %w", err)
	}

	return models.BudgetPeriod{PeriodID: periodID, UnitsConsumed: consumed, Ceiling: t.ceiling}, nil
}

func clampRemaining(ceiling, consumed int) int {
	if consumed >= ceiling {
		return 0
	}
	return ceiling - consumed
}
