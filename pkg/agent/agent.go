// Package agent runs the periodic tasks: checking mentions, searching for
// prayer requests, and posting the daily verse. Transport and content
// generation are collaborator interfaces; every billable read goes
// through the dispatcher and every at-most-once decision through the
// ledger.
package agent

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/config"
	"github.com/pureslurp/InChristAI/pkg/dispatch"
	"github.com/pureslurp/InChristAI/pkg/ledger"
	"github.com/pureslurp/InChristAI/pkg/models"
	"github.com/pureslurp/InChristAI/pkg/quota"
	"github.com/pureslurp/InChristAI/pkg/schedule"
)

// maxPostLength is the hard character limit of the external service.
const maxPostLength = 280

// Fetcher performs the billable external reads. Implementations own the
// actual network calls; the agent never reaches the service any other
// way.
type Fetcher interface {
	// Mentions returns up to max recent mentions of the bot.
	Mentions(ctx context.Context, max int) ([]models.Mention, error)
	// Search returns up to max recent posts matching query.
	Search(ctx context.Context, query string, max int) ([]models.Mention, error)
}

// Composer generates response text. ComposeReply may return
// models.NoReply to decline an interaction; the agent still marks it
// handled.
type Composer interface {
	ComposeReply(ctx context.Context, m models.Mention) (string, error)
	ComposeDailyPost(ctx context.Context) (string, error)
}

// Responder performs the write operations. Writes are not billable reads
// and never touch the quota tracker.
type Responder interface {
	Reply(ctx context.Context, toID, text string) (string, error)
	Post(ctx context.Context, text string) (string, error)
}

// Agent wires the tasks to the budgeting core and the collaborators.
type Agent struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	ledger     *ledger.Ledger
	sched      *schedule.Store
	fetcher    Fetcher
	composer   Composer
	responder  Responder
}

// New creates an Agent.
func New(cfg *config.Config, d *dispatch.Dispatcher, l *ledger.Ledger, s *schedule.Store, f Fetcher, c Composer, r Responder) *Agent {
	return &Agent{
		cfg:        cfg,
		dispatcher: d,
		ledger:     l,
		sched:      s,
		fetcher:    f,
		composer:   c,
		responder:  r,
	}
}

// CostRules converts the configured cost table into the tracker's rules.
func CostRules(cfg *config.Config) map[models.CallKind]quota.CostRule {
	rules := make(map[models.CallKind]quota.CostRule, len(cfg.Quota.Costs))
	for kind, c := range cfg.Quota.Costs {
		mode := quota.CostPerItem
		if c.Mode == "flat" {
			mode = quota.CostFlat
		}
		rules[kind] = quota.CostRule{Mode: mode, Units: c.Units}
	}
	return rules
}

// RunDue runs every task that is due, sequentially. Tasks never overlap;
// a failing task does not stop the others, but the first error is
// returned for visibility.
func (a *Agent) RunDue(ctx context.Context, now time.Time) error {
	var firstErr error
	if _, err := a.ProcessMentions(ctx, now); err != nil {
		log.Error().Err(err).Msg("agent: mentions task failed")
		firstErr = err
	}
	if _, err := a.ProcessSearch(ctx, now); err != nil {
		log.Error().Err(err).Msg("agent: search task failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := a.PostDaily(ctx, now, false); err != nil {
		log.Error().Err(err).Msg("agent: daily post task failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := a.CleanupLedger(ctx, now); err != nil {
		log.Error().Err(err).Msg("agent: ledger cleanup task failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CleanupLedger prunes ledger records past the retention window, at most
// once per configured interval. Pruning is local housekeeping: no quota
// involved, so it goes through the schedule store only.
func (a *Agent) CleanupLedger(ctx context.Context, now time.Time) error {
	tc := a.cfg.Task(config.TaskLedgerCleanup)

	due, err := a.sched.IsDue(ctx, config.TaskLedgerCleanup, tc.Interval, now)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	if _, err := a.ledger.Cleanup(ctx, a.cfg.Ledger.RetentionDays); err != nil {
		return err
	}
	return a.sched.RecordRun(ctx, config.TaskLedgerCleanup, now)
}

// shouldRespond applies the local spam and self-mention filters. The
// ledger check happens separately so its result can be logged with the
// skip reason.
func (a *Agent) shouldRespond(m models.Mention) bool {
	if a.cfg.BotUserID != "" && m.AuthorID == a.cfg.BotUserID {
		log.Debug().Str("id", m.ID).Msg("agent: skipping our own post")
		return false
	}
	text := strings.ToLower(m.Text)
	for _, word := range a.cfg.BlockedWords {
		if strings.Contains(text, word) {
			log.Info().Str("id", m.ID).Str("word", word).Msg("agent: skipping blocked content")
			return false
		}
	}
	return true
}

// handleAll filters fetched interactions through the ledger and responds
// to the remainder. Returns how many were newly handled.
func (a *Agent) handleAll(ctx context.Context, items []models.Mention, interactionType string, now time.Time) (int, error) {
	handled := 0
	for _, m := range items {
		done, err := a.ledger.IsHandled(ctx, m.ID)
		if err != nil {
			return handled, err
		}
		if done {
			log.Debug().Str("id", m.ID).Msg("agent: already handled")
			continue
		}
		if !a.shouldRespond(m) {
			continue
		}

		err = a.ledger.RecordSeen(ctx, models.InteractionRecord{
			InteractionID: m.ID,
			Type:          interactionType,
			AuthorID:      m.AuthorID,
			FirstSeen:     now,
		})
		if err != nil {
			return handled, err
		}

		text, err := a.composer.ComposeReply(ctx, m)
		if err != nil {
			log.Error().Err(err).Str("id", m.ID).Msg("agent: compose failed, will retry next cycle")
			continue
		}
		if strings.TrimSpace(text) == models.NoReply {
			// Declined on purpose; terminal in the ledger so it is never
			// reconsidered.
			if err := a.ledger.MarkHandled(ctx, m.ID, models.NoReply, now); err != nil {
				return handled, err
			}
			log.Info().Str("id", m.ID).Msg("agent: declined to reply")
			handled++
			continue
		}

		ref, err := a.responder.Reply(ctx, m.ID, truncate(text))
		if err != nil {
			log.Error().Err(err).Str("id", m.ID).Msg("agent: reply failed, will retry next cycle")
			continue
		}
		if err := a.ledger.MarkHandled(ctx, m.ID, ref, now); err != nil {
			return handled, err
		}
		log.Info().Str("id", m.ID).Str("response", ref).Msg("agent: replied")
		handled++
	}
	return handled, nil
}

// truncate trims text to the service's character limit. The limit is in
// characters, not bytes, so composed text with accents or typographic
// quotes keeps its full length and a cut never lands mid-rune.
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxPostLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxPostLength-3]) + "..."
}
