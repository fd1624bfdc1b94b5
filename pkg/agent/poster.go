package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/config"
)

// PostDaily posts the daily verse if it has not been posted within the
// configured interval. Posting is a write, not a billable read, so it
// never touches the quota tracker; the run is recorded only after the
// post succeeded, so a crash mid-task re-attempts next cycle instead of
// silently skipping a day.
func (a *Agent) PostDaily(ctx context.Context, now time.Time, force bool) error {
	tc := a.cfg.Task(config.TaskDailyPost)

	if !force {
		due, err := a.sched.IsDue(ctx, config.TaskDailyPost, tc.Interval, now)
		if err != nil {
			return err
		}
		if !due {
			log.Debug().Msg("agent: daily post already made, not yet due")
			return nil
		}
	}

	text, err := a.composer.ComposeDailyPost(ctx)
	if err != nil {
		return err
	}

	ref, err := a.responder.Post(ctx, truncate(text))
	if err != nil {
		return err
	}

	if err := a.sched.RecordRun(ctx, config.TaskDailyPost, now); err != nil {
		return err
	}

	log.Info().Str("post", ref).Msg("agent: daily verse posted")
	return nil
}
