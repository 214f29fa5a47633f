package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct note from one user to another.
//
// ID is a bigserial like in a chat log: higher id means inserted later,
// which gives a stable tie-break when two rows share a created_at.
type Message struct {
	ID         int64      `json:"id"`
	SenderID   uuid.UUID  `json:"sender"`
	ReceiverID uuid.UUID  `json:"receiver"`
	Content    string     `json:"content"`
	JobID      *uuid.UUID `json:"job,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ConversationSummary is derived per request, never stored.
type ConversationSummary struct {
	CounterpartyID uuid.UUID `json:"counterpartyId"`
	LastMessage    Message   `json:"lastMessage"`
	UnreadCount    int       `json:"unreadCount"`
}
