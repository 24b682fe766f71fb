package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeMessageSend             = "message:send"
	EventTypeTypingStart             = "typing:start"
	EventTypeTypingStop              = "typing:stop"
	EventTypeConversationSubscribe   = "conversation:subscribe"
	EventTypeConversationUnsubscribe = "conversation:unsubscribe"
	EventTypePing                    = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageSent    = "message:sent"
	EventTypeMessageReceive = "message:receive"
	EventTypeMessageNew     = "message:new"
	EventTypeMessageRemoved = "message:removed"
	EventTypeUserOnline     = "user:online"
	EventTypeUserOffline    = "user:offline"
	EventTypePong           = "pong"
	EventTypeError          = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *string         `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

// TypingInPayload names the peer a typing event is aimed at. Typing is
// relayed to that peer only, never persisted.
type TypingInPayload struct {
	RecipientID uuid.UUID `json:"recipient_id"`
}

type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type MessageRemovedPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type TypingPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type PresencePayload struct {
	UserID   uuid.UUID  `json:"user_id"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}
