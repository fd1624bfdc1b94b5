package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/dispatch"
	"github.com/pureslurp/InChristAI/pkg/models"
)

// ProcessMentions runs one cycle of the mentions task: a dispatcher-gated
// fetch, then ledger-filtered handling of whatever came back. Returns how
// many mentions were newly handled.
func (a *Agent) ProcessMentions(ctx context.Context, now time.Time) (int, error) {
	tc := a.cfg.Task(config.TaskCheckMentions)

	var fetched []models.Mention
	out, err := a.dispatcher.Run(ctx, dispatch.Operation{
		TaskID:          config.TaskCheckMentions,
		Kind:            models.KindMentionsList,
		MinInterval:     tc.Interval,
		ExpectedResults: tc.MaxResults,
		Fetch: func(ctx context.Context) (int, error) {
			ms, err := a.fetcher.Mentions(ctx, tc.MaxResults)
			if err != nil {
				return 0, err
			}
			fetched = ms
			return len(ms), nil
		},
	}, now)
	if err != nil {
		return 0, err
	}
	if out.Skipped() {
		return 0, nil
	}

	if len(fetched) == 0 {
		log.Info().Msg("agent: no mentions in recent history")
		return 0, nil
	}

	log.Info().Int("fetched", len(fetched)).Int("units", out.Charge.Units).Msg("agent: processing mentions")
	return a.handleAll(ctx, fetched, models.InteractionMention, now)
}

// ProcessSearch runs one cycle of the prayer-request search task. Same
// shape as mentions over a configured query.
func (a *Agent) ProcessSearch(ctx context.Context, now time.Time) (int, error) {
	tc := a.cfg.Task(config.TaskPrayerSearch)
	if tc.Query == "" {
		return 0, nil
	}

	var fetched []models.Mention
	out, err := a.dispatcher.Run(ctx, dispatch.Operation{
		TaskID:          config.TaskPrayerSearch,
		Kind:            models.KindSearchFetch,
		MinInterval:     tc.Interval,
		ExpectedResults: tc.MaxResults,
		Fetch: func(ctx context.Context) (int, error) {
			ms, err := a.fetcher.Search(ctx, tc.Query, tc.MaxResults)
			if err != nil {
				return 0, err
			}
			fetched = ms
			return len(ms), nil
		},
	}, now)
	if err != nil {
		return 0, err
	}
	if out.Skipped() {
		return 0, nil
	}

	if len(fetched) == 0 {
		log.Info().Str("query", tc.Query).Msg("agent: no search results")
		return 0, nil
	}

	log.Info().Int("fetched", len(fetched)).Str("query", tc.Query).Msg("agent: processing search results")
	return a.handleAll(ctx, fetched, models.InteractionSearch, now)
}
