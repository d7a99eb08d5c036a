// Package domain defines the core data types shared across the chat client.
package domain

import "time"

// Message roles. The store accepts any non-empty role string, but these are
// the only values the client itself produces.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single persisted conversation turn. Messages are append-only:
// created once, never mutated, deleted only by an explicit bulk clear.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation marks the start of a logical conversation epoch. Messages
// appended while a conversation is current carry its ID, which scopes
// "current conversation" queries without deleting older history.
type Conversation struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// QueryFilter selects and pages stored messages.
type QueryFilter struct {
	// Limit caps the page size. Values <= 0 fall back to a default of 100.
	Limit int
	// Offset skips rows for pagination, applied after filtering and ordering.
	Offset int
	// Search restricts to messages whose content contains the given substring,
	// case-insensitively.
	Search string
	// Role restricts to a single role when non-empty.
	Role string
	// CurrentConversationOnly restricts to messages of the most recently
	// started conversation. When no conversation exists, all messages match.
	CurrentConversationOnly bool
}

// Summary aggregates basic statistics over the stored history.
type Summary struct {
	TotalMessages     int        `json:"total_messages"`
	UserMessages      int        `json:"user_messages"`
	AssistantMessages int        `json:"assistant_messages"`
	FirstMessage      *time.Time `json:"first_message,omitempty"`
	LastMessage       *time.Time `json:"last_message,omitempty"`
	AvgContentLength  float64    `json:"avg_content_length"`
}
