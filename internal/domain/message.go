package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxTextLength is the message body limit, counted in code points.
const MaxTextLength = 1000

// Message is immutable once persisted. It is destroyed, never edited.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	// Joined fields
	SenderUsername string `json:"sender_username,omitempty"`
}

// NewMessage builds a message with a fresh id, the canonical conversation
// key and an expiry of now + ttl. Validation happens before this is called.
func NewMessage(senderID, receiverID uuid.UUID, text string, now time.Time, ttl time.Duration) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Live reports whether the message is still visible at the given time.
// Readers must treat this as a hard filter, not a display hint.
func (m *Message) Live(now time.Time) bool {
	return now.Before(m.ExpiresAt)
}
