package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/domain"
	"github.com/vanishchat/vanish/internal/expiry"
	"github.com/vanishchat/vanish/internal/presence"
	"github.com/vanishchat/vanish/internal/repository"
	"github.com/vanishchat/vanish/pkg/validator"
	"go.uber.org/zap"
)

var (
	ErrBlocked              = errors.New("recipient has blocked the sender")
	ErrUserNotFound         = errors.New("user not found")
	ErrCannotMessageSelf    = errors.New("cannot message yourself")
	ErrConversationMismatch = errors.New("conversation id does not match the participants")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
)

// Notifier pushes delivery events to live connections. Implementations are
// best-effort; a push failure never affects persistence.
type Notifier interface {
	// NotifyNewMessage fans a freshly persisted message out:
	// message:receive to the recipient's connections, message:sent to the
	// originating connection (or all sender connections when origin is
	// nil), message:new to conversation subscribers.
	NotifyNewMessage(msg *domain.Message, origin presence.Conn)
}

// SendInput is a send request as received from a client. ConversationID is
// optional; when present it must match the server-side derivation, since a
// client-chosen key could address someone else's conversation.
type SendInput struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	Text           string    `json:"text"`
}

// DeliveryService orchestrates a send: policy check, persist, contact-list
// linkage, live push, expiry scheduling. Failures before the persist leave
// no side effects; failures after it are logged and swallowed because the
// stored message is already the source of truth.
type DeliveryService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	policy   *DeliveryPolicy
	reaper   *expiry.Reaper
	notifier Notifier
	ttl      time.Duration
	log      *zap.Logger
}

func NewDeliveryService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	policy *DeliveryPolicy,
	reaper *expiry.Reaper,
	ttl time.Duration,
	log *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		messages: messages,
		users:    users,
		policy:   policy,
		reaper:   reaper,
		ttl:      ttl,
		log:      log,
	}
}

func (s *DeliveryService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Send runs the delivery pipeline for one message. origin is the
// connection the request arrived on, nil for the HTTP fallback.
func (s *DeliveryService) Send(ctx context.Context, senderID uuid.UUID, input SendInput, origin presence.Conn) (*domain.Message, error) {
	if senderID == input.RecipientID {
		return nil, ErrCannotMessageSelf
	}

	text := strings.TrimSpace(input.Text)
	if errs := validator.ValidateMessage(text, input.RecipientID, domain.MaxTextLength); errs.HasErrors() {
		return nil, errs
	}

	conversationID := domain.ConversationID(senderID, input.RecipientID)
	if input.ConversationID != "" && input.ConversationID != conversationID {
		return nil, ErrConversationMismatch
	}

	recipient, err := s.users.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("looking up recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}

	allowed, err := s.policy.CanDeliver(ctx, senderID, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrBlocked
	}

	msg := domain.NewMessage(senderID, input.RecipientID, text, time.Now(), s.ttl)
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	// The message is durable from here on. Contact bookkeeping and the
	// live push are secondary; their failures are logged, not returned.
	if err := s.policy.EnsureContact(ctx, senderID, input.RecipientID); err != nil {
		s.log.Error("delivery: contact linkage failed",
			zap.String("sender_id", senderID.String()),
			zap.String("recipient_id", input.RecipientID.String()),
			zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg, origin)
	}

	s.reaper.Schedule(msg)

	return msg, nil
}

// History returns the live messages of a conversation in creation order.
// If the requester has blocked the other participant, the history is empty
// rather than an error.
func (s *DeliveryService) History(ctx context.Context, requesterID uuid.UUID, conversationID string, now time.Time) ([]domain.Message, error) {
	a, b, err := domain.ConversationParticipants(conversationID)
	if err != nil {
		return nil, ErrConversationMismatch
	}

	var other uuid.UUID
	switch requesterID {
	case a:
		other = b
	case b:
		other = a
	default:
		return nil, ErrNotParticipant
	}

	blocked, err := s.users.IsBlocked(ctx, requesterID, other)
	if err != nil {
		return nil, fmt.Errorf("checking block list: %w", err)
	}
	if blocked {
		return []domain.Message{}, nil
	}

	messages, err := s.messages.ListConversation(ctx, conversationID, now)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Cleanup triggers an immediate sweep of expired messages.
func (s *DeliveryService) Cleanup(ctx context.Context) (int64, error) {
	return s.reaper.Sweep(ctx, time.Now())
}
