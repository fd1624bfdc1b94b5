// Package dispatch is the façade every billable external read goes
// through. It checks eligibility and projected cost before the call and
// charges the actual result size after. It never charges speculatively
// before knowing the real size, and never skips the charge because the
// call looked cheap.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
)

// ErrAmbiguousOutcome marks an external call whose outcome is unknown
// (timeout or cancellation mid-flight). Nothing is charged and no run is
// recorded: guessing would either under- or over-count, so the cycle is
// surfaced for retried or manual handling instead.
var ErrAmbiguousOutcome = errors.New("ambiguous outcome: external call did not settle")

// DefaultTimeout bounds the external call when the operation does not
// supply its own.
const DefaultTimeout = 30 * time.Second

// State is the per-cycle position of a task in the dispatcher.
type State int

const (
	// Idle: scheduling or budget check decided against running this cycle.
	Idle State = iota
	// Eligible: due and projected cost fits the remaining budget.
	Eligible
	// InFlight: the external read ran but did not settle into a charge.
	InFlight
	// Settled: charged with the actual result size and the run recorded.
	Settled
)

func (s State) String() string {
	switch s {
	case Eligible:
		return "eligible"
	case InFlight:
		return "in-flight"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

// SkipReason says why a cycle ended in Idle.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipNotDue     SkipReason = "not yet due"
	SkipOverBudget SkipReason = "over budget"
)

// FetchFunc performs the external read and returns the number of items it
// produced. The network call itself lives with the caller; the dispatcher
// only needs the result cardinality to charge correctly.
type FetchFunc func(ctx context.Context) (resultSize int, err error)

// Operation describes one billable periodic read.
type Operation struct {
	TaskID          string
	Kind            models.CallKind
	MinInterval     time.Duration
	ExpectedResults int           // projection input for the pre-call budget check
	Timeout         time.Duration // bound on the external call; DefaultTimeout when zero
	Fetch           FetchFunc
}

// Outcome reports how a cycle ended.
type Outcome struct {
	State  State
	Skip   SkipReason
	Charge models.Charge
}

// Skipped reports whether the cycle ended without invoking the external
// read.
func (o Outcome) Skipped() bool {
	return o.State == Idle && o.Skip != SkipNone
}

// Dispatcher gates billable reads behind the schedule store and the quota
// tracker.
type Dispatcher struct {
	tracker quota.Tracker
	sched   *schedule.Store
	model   *quota.CostModel
}

// New creates a Dispatcher.
func New(tracker quota.Tracker, sched *schedule.Store, model *quota.CostModel) *Dispatcher {
	if model == nil {
		model = quota.DefaultCostModel()
	}
	return &Dispatcher{tracker: tracker, sched: sched, model: model}
}

// Run executes one cycle of op: eligibility check, projection against the
// remaining budget, the external read under a timeout, then charge and
// run record. Skip decisions return a nil error with Outcome.Skip set;
// only ambiguous outcomes and persistence failures surface as errors.
func (d *Dispatcher) Run(ctx context.Context, op Operation, now time.Time) (Outcome, error) {
	if op.Fetch == nil {
		return Outcome{}, fmt.Errorf("operation %s has no fetch", op.TaskID)
	}

	due, err := d.sched.IsDue(ctx, op.TaskID, op.MinInterval, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("eligibility check for %s: %w", op.TaskID, err)
	}
	if !due {
		log.Debug().Str("task", op.TaskID).Msg("dispatch: skipping cycle, not yet due")
		return Outcome{State: Idle, Skip: SkipNotDue}, nil
	}

	remaining, err := d.tracker.Remaining(ctx, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("budget check for %s: %w", op.TaskID, err)
	}
	projected := d.model.Project(op.Kind, op.ExpectedResults, 1)
	if projected > remaining {
		log.Warn().
			Str("task", op.TaskID).
			Str("kind", string(op.Kind)).
			Int("projected", projected).
			Int("remaining", remaining).
			Msg("dispatch: skipping cycle, projected cost exceeds remaining budget")
		return Outcome{State: Idle, Skip: SkipOverBudget}, nil
	}

	// InFlight: the read happens outside this core, bounded by a timeout.
	timeout := op.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	size, fetchErr := op.Fetch(fctx)
	cancel()

	if fetchErr != nil {
		if errors.Is(fetchErr, context.DeadlineExceeded) || errors.Is(fetchErr, context.Canceled) {
			log.Error().
				Str("task", op.TaskID).
				Err(fetchErr).
				Msg("dispatch: external call did not settle, nothing charged or recorded")
			return Outcome{State: InFlight}, fmt.Errorf("%w: %s", ErrAmbiguousOutcome, fetchErr)
		}
		// A definite failure: the caller may retry with its own backoff,
		// and a retry that reaches the service is charged on its own run.
		return Outcome{State: InFlight}, fmt.Errorf("external read for %s: %w", op.TaskID, fetchErr)
	}

	charge, err := d.tracker.Charge(ctx, op.Kind, size, now)
	if err != nil {
		// The external call happened but the charge could not be made
		// durable; escalate so the cycle is retried rather than guessed.
		return Outcome{State: InFlight}, fmt.Errorf("charge for %s: %w", op.TaskID, err)
	}

	if err := d.sched.RecordRun(ctx, op.TaskID, now); err != nil {
		// The charge is already durable; the task stays due and may
		// re-attempt its work without re-charging for this call.
		return Outcome{State: Settled, Charge: charge}, fmt.Errorf("record run for %s: %w", op.TaskID, err)
	}

	return Outcome{State: Settled, Charge: charge}, nil
}
