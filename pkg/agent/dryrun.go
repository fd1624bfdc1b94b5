package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pureslurp/InChristAI/pkg/models"
)

// DryRunFetcher serves canned mentions instead of calling the external
// service, for local testing without credentials or quota spend.
type DryRunFetcher struct {
	mentions []models.Mention
}

// NewDryRunFetcher creates a fetcher over a fixed mention set.
func NewDryRunFetcher(mentions []models.Mention) *DryRunFetcher {
	return &DryRunFetcher{mentions: mentions}
}

// LoadMentionsFile reads canned mentions from a JSON file (an array of
// mention objects as the service would return them).
func LoadMentionsFile(path string) ([]models.Mention, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mentions file: %w", err)
	}
	var mentions []models.Mention
	if err := json.Unmarshal(data, &mentions); err != nil {
		return nil, fmt.Errorf("parse mentions file: %w", err)
	}
	return mentions, nil
}

// Mentions returns up to max canned mentions.
func (f *DryRunFetcher) Mentions(ctx context.Context, max int) ([]models.Mention, error) {
	if max > 0 && len(f.mentions) > max {
		return f.mentions[:max], nil
	}
	return f.mentions, nil
}

// Search returns up to max canned mentions whose text contains the query.
func (f *DryRunFetcher) Search(ctx context.Context, query string, max int) ([]models.Mention, error) {
	q := strings.ToLower(query)
	var out []models.Mention
	for _, m := range f.mentions {
		if strings.Contains(strings.ToLower(m.Text), q) {
			out = append(out, m)
			if max > 0 && len(out) == max {
				break
			}
		}
	}
	return out, nil
}

// DryRunResponder logs what it would post instead of posting, returning
// uuid-stamped fake references so the ledger path behaves exactly as in
// production.
type DryRunResponder struct{}

// Reply simulates replying to toID.
func (DryRunResponder) Reply(ctx context.Context, toID, text string) (string, error) {
	ref := "dry-run-" + uuid.NewString()
	log.Info().Str("to", toID).Str("ref", ref).Str("text", text).Msg("dry run: would reply")
	return ref, nil
}

// Post simulates a standalone post.
func (DryRunResponder) Post(ctx context.Context, text string) (string, error) {
	ref := "dry-run-" + uuid.NewString()
	log.Info().Str("ref", ref).Str("text", text).Msg("dry run: would post")
	return ref, nil
}

// CannedComposer produces fixed response text, standing in for the AI
// generation collaborator during local runs and tests.
type CannedComposer struct{}

var fallbackVerses = []string{
	"\"For I know the plans I have for you, declares the Lord, plans for welfare and not for evil, to give you a future and a hope.\"\n\nJeremiah 29:11 (ESV)",
	"\"I can do all things through him who strengthens me.\"\n\nPhilippians 4:13 (ESV)",
	"\"Trust in the Lord with all your heart, and do not lean on your own understanding.\"\n\nProverbs 3:5 (ESV)",
	"\"The Lord is my shepherd; I shall not want.\"\n\nPsalm 23:1 (ESV)",
	"\"Be strong and courageous. Do not fear or be in dread of them, for it is the Lord your God who goes with you.\"\n\nDeuteronomy 31:6 (ESV)",
}

// ComposeReply returns a short encouragement.
func (CannedComposer) ComposeReply(ctx context.Context, m models.Mention) (string, error) {
	return "Praying for you today. \"Cast all your anxiety on him because he cares for you.\" 1 Peter 5:7", nil
}

// ComposeDailyPost rotates through the fallback verses by day of year.
func (CannedComposer) ComposeDailyPost(ctx context.Context) (string, error) {
	day := time.Now().UTC().YearDay()
	return fallbackVerses[day%len(fallbackVerses)], nil
}
