package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/presence"
	"github.com/vanishchat/vanish/internal/repository"
	"github.com/vanishchat/vanish/internal/service"
	"github.com/vanishchat/vanish/pkg/validator"
	"go.uber.org/zap"
)

// Hub manages all active WebSocket clients and routes messages. Presence
// state lives in the registry; the hub drives its transitions and mirrors
// them into the durable user record.
type Hub struct {
	registry *presence.Registry
	users    repository.UserRepository
	delivery *service.DeliveryService
	log      *zap.Logger

	// revealBlockReason controls whether a policy-denied sender learns
	// that they were blocked or just that delivery failed.
	revealBlockReason bool

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	conversationID string
	data           []byte
	excludeID      *uuid.UUID // optional: skip this user (e.g. sender)
}

func NewHub(registry *presence.Registry, users repository.UserRepository, delivery *service.DeliveryService, revealBlockReason bool, log *zap.Logger) *Hub {
	return &Hub{
		registry:          registry,
		users:             users,
		delivery:          delivery,
		log:               log,
		revealBlockReason: revealBlockReason,
		clients:           make(map[*Client]struct{}),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		broadcast:         make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = struct{}{}
			first := h.registry.Connect(client.userID, client, time.Now())
			h.log.Info("ws hub: connection registered",
				zap.String("user_id", client.userID.String()),
				zap.Int("clients", len(h.clients)),
				zap.Bool("first", first))

			if first {
				now := time.Now()
				if err := h.users.SetPresence(ctx, client.userID, true, now); err != nil {
					h.log.Error("ws hub: persisting online flag failed", zap.Error(err))
				}
				h.notifyPresence(ctx, EventTypeUserOnline, client.userID, nil)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; !ok {
				continue
			}
			delete(h.clients, client)
			last, lastSeen := h.registry.Disconnect(client.userID, client, time.Now())
			close(client.done)
			h.log.Info("ws hub: connection unregistered",
				zap.String("user_id", client.userID.String()),
				zap.Int("clients", len(h.clients)),
				zap.Bool("last", last))

			if last {
				if err := h.users.SetPresence(ctx, client.userID, false, lastSeen); err != nil {
					h.log.Error("ws hub: persisting offline flag failed", zap.Error(err))
				}
				h.notifyPresence(ctx, EventTypeUserOffline, client.userID, &lastSeen)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if msg.excludeID != nil && client.userID == *msg.excludeID {
					continue
				}
				if !client.IsSubscribed(msg.conversationID) {
					continue
				}
				if !client.Send(msg.data) {
					h.log.Warn("ws hub: dropped frame, client buffer full",
						zap.String("user_id", client.userID.String()))
				}
			}
		}
	}
}

// BroadcastToConversation sends an event to all subscribers of a conversation.
func (h *Hub) BroadcastToConversation(conversationID string, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws hub: marshal error", zap.Error(err))
		return
	}
	h.broadcast <- &broadcastMsg{
		conversationID: conversationID,
		data:           data,
		excludeID:      excludeUserID,
	}
}

// SendToUser sends raw event data to every live connection of a user.
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	for _, conn := range h.registry.Connections(userID) {
		if !conn.Send(data) {
			h.log.Warn("ws hub: dropped frame, connection buffer full",
				zap.String("user_id", userID.String()))
		}
	}
}

// HandleSend runs the delivery pipeline for a message:send event and maps
// failures to error events on the originating connection.
func (h *Hub) HandleSend(sender *Client, input service.SendInput) {
	_, err := h.delivery.Send(context.Background(), sender.userID, input, sender)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		sender.sendError("VALIDATION_ERROR", verrs.Error())
	case errors.Is(err, service.ErrBlocked):
		if h.revealBlockReason {
			sender.sendError("POLICY_DENIED", "Unable to deliver message: recipient has blocked you")
		} else {
			sender.sendError("POLICY_DENIED", "Unable to deliver message")
		}
	case errors.Is(err, service.ErrUserNotFound):
		sender.sendError("NOT_FOUND", "Recipient not found")
	case errors.Is(err, service.ErrCannotMessageSelf):
		sender.sendError("INVALID_RECIPIENT", "Cannot message yourself")
	case errors.Is(err, service.ErrConversationMismatch):
		sender.sendError("CONVERSATION_MISMATCH", "Conversation id does not match the recipient")
	default:
		h.log.Error("ws hub: send failed", zap.String("user_id", sender.userID.String()), zap.Error(err))
		sender.sendError("SEND_FAILED", "Failed to send message")
	}
}

// HandleTyping relays a typing event to the named peer's connections.
// Fire and forget: no persistence, no acknowledgment, no ordering promise
// relative to messages.
func (h *Hub) HandleTyping(sender *Client, event *Event) {
	var p TypingInPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.RecipientID == uuid.Nil {
		sender.sendError("INVALID_PAYLOAD", "recipient_id required for typing events")
		return
	}

	evt, err := NewEvent(event.Type, event.ConversationID, TypingPayload{UserID: sender.userID})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.SendToUser(p.RecipientID, data)
}

// notifyPresence tells this user's contacts about an online/offline
// transition. Scoped to contacts rather than fanned out process-wide: only
// users who could have a conversation with them care.
func (h *Hub) notifyPresence(ctx context.Context, eventType string, userID uuid.UUID, lastSeen *time.Time) {
	contacts, err := h.users.ContactIDs(ctx, userID)
	if err != nil {
		h.log.Error("ws hub: loading contacts for presence broadcast failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	evt, err := NewEvent(eventType, nil, PresencePayload{UserID: userID, LastSeen: lastSeen})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	for _, contactID := range contacts {
		h.SendToUser(contactID, data)
	}
}
