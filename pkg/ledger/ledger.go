// Package ledger is the durable record of every externally observed
// interaction the agent has seen or handled. Its lookups are plain SQLite
// reads: the package imports no transport, so the read path cannot reach
// the external service. Re-verifying "did we already reply" against the
// service would itself consume quota, which is exactly the failure this
// ledger exists to prevent.
package ledger

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

// Ledger reads and writes interaction records.
type Ledger struct {
	db       *sql.DB
	degraded bool
}

// New creates a Ledger over the shared database. When the underlying
// table was created by this process (a wiped volume or a first deploy),
// history is gone and every lookup degrades to "not handled". That trade
// is accepted (reprocess a few interactions rather than spend quota
// re-verifying), but it is logged, never silent.
func New(st *store.Store) *Ledger {
	l := &Ledger{db: st.DB(), degraded: st.FreshLedger()}
	if l.degraded {
		log.Warn().Msg("ledger: no prior history found; previously handled interactions may be processed again")
	}
	return l
}

// Degraded reports whether this process started with an empty ledger.
func (l *Ledger) Degraded() bool {
	return l.degraded
}

// IsHandled reports whether interactionID has already been responded to.
// Pure local lookup; absence of a record means "not yet handled".
func (l *Ledger) IsHandled(ctx context.Context, interactionID string) (bool, error) {
	var handled bool
	err := l.db.QueryRowContext(ctx,
		`SELECT handled FROM interaction_ledger WHERE interaction_id = ?`, interactionID,
	).Scan(&handled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return handled, nil
}

// RecordSeen stores a first-seen record before handling is attempted, so
// a crash before MarkHandled still leaves a trace distinguishing
// "observed but not completed" from "never observed". Idempotent: a
// repeat observation of the same id is a no-op.
func (l *Ledger) RecordSeen(ctx context.Context, rec models.InteractionRecord) error {
	if rec.FirstSeen.IsZero() {
		rec.FirstSeen = time.Now().UTC()
	}
	if rec.Type == "" {
		rec.Type = models.InteractionMention
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO interaction_ledger (interaction_id, interaction_type, author_id, first_seen, handled)
		 VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(interaction_id) DO NOTHING`,
		rec.InteractionID, rec.Type, rec.AuthorID, rec.FirstSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record seen: %w", err)
	}
	return nil
}

// MarkHandled records the completed response for interactionID.
// Idempotent: a second call with the same id updates nothing and never
// errors on the duplicate.
func (l *Ledger) MarkHandled(ctx context.Context, interactionID, responseRef string, now time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO interaction_ledger (interaction_id, first_seen, handled, response_ref, handled_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(interaction_id) DO UPDATE SET
			handled = 1,
			response_ref = excluded.response_ref,
			handled_at = excluded.handled_at
		 WHERE interaction_ledger.handled = 0`,
		interactionID, now.UTC(), responseRef, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark handled: %w", err)
	}
	return nil
}

// Get returns the record for interactionID, with ok=false when absent.
func (l *Ledger) Get(ctx context.Context, interactionID string) (models.InteractionRecord, bool, error) {
	rec, err := l.scanOne(l.db.QueryRowContext(ctx,
		`SELECT interaction_id, interaction_type, author_id, first_seen, handled, response_ref, handled_at
		 FROM interaction_ledger WHERE interaction_id = ?`, interactionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return models.InteractionRecord{}, false, nil
	}
	if err != nil {
		return models.InteractionRecord{}, false, fmt.Errorf("ledger get: %w", err)
	}
	return rec, true, nil
}

// Recent returns the n most recently written records, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]models.InteractionRecord, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT interaction_id, interaction_type, author_id, first_seen, handled, response_ref, handled_at
		 FROM interaction_ledger
		 ORDER BY COALESCE(handled_at, first_seen) DESC
		 LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger recent: %w", err)
	}
	defer rows.Close()

	var recs []models.InteractionRecord
	for rows.Next() {
		rec, err := l.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Cleanup deletes records first seen before the retention window. Pruning
// is an external retention policy, not part of normal operation.
func (l *Ledger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM interaction_ledger WHERE first_seen < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("ledger cleanup: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("ledger: pruned old records")
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (l *Ledger) scanOne(row rowScanner) (models.InteractionRecord, error) {
	var (
		rec         models.InteractionRecord
		authorID    sql.NullString
		responseRef sql.NullString
		handledAt   sql.NullTime
	)
	err := row.Scan(&rec.InteractionID, &rec.Type, &authorID, &rec.FirstSeen, &rec.Handled, &responseRef, &handledAt)
	if err != nil {
		return models.InteractionRecord{}, err
	}
	rec.AuthorID = authorID.String
	rec.ResponseRef = responseRef.String
	if handledAt.Valid {
		t := handledAt.Time
		rec.HandledAt = &t
	}
	return rec, nil
}
