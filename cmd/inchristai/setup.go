package main

import (
	"github.com/pureslurp/InChristAI/pkg/agent"
	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/dispatch"
	"github.com/pureslurp/InChristAI/pkg/ledger"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
	"github.com/pureslurp/InChristAI/pkg/store"
)

// components holds the wired budgeting core for one command invocation.
type components struct {
	store      *store.Store
	model      *quota.CostModel
	tracker    *quota.SQLiteTracker
	sched      *schedule.Store
	ledger     *ledger.Ledger
	dispatcher *dispatch.Dispatcher
}

func openComponents(cfg *config.Config) (*components, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	model := quota.NewCostModel(agent.CostRules(cfg))
	tracker := quota.NewTracker(st, model, cfg.Quota.Ceiling)
	sched := schedule.New(st)
	ldg := ledger.New(st)

	return &components{
		store:      st,
		model:      model,
		tracker:    tracker,
		sched:      sched,
		ledger:     ldg,
		dispatcher: dispatch.New(tracker, sched, model),
	}, nil
}

func (c *components) Close() error {
	return c.store.Close()
}
