package models

import "time"

// Interaction types stored in the ledger.
const (
	InteractionMention = "mention"
	InteractionSearch  = "search"
)

// NoReply is the response reference recorded when the composer declines to
// answer an interaction. The interaction is still terminal in the ledger.
const NoReply = "NO_REPLY"

// Mention is an externally originated event the agent may need to act on
// at most once. The ID is assigned by the external service and is the
// ledger's natural key.
type Mention struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	AuthorID       string    `json:"author_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// InteractionRecord is one ledger row. Its presence, not any external
// re-verification, is the complete truth for "already handled".
type InteractionRecord struct {
	InteractionID string     `json:"interaction_id"`
	Type          string     `json:"interaction_type"`
	AuthorID      string     `json:"author_id,omitempty"`
	FirstSeen     time.Time  `json:"first_seen"`
	Handled       bool       `json:"handled"`
	ResponseRef   string     `json:"response_ref,omitempty"`
	HandledAt     *time.Time `json:"handled_at,omitempty"`
}
