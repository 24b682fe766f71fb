package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, exceptID uuid.UUID) ([]domain.User, error)

	// SetPresence persists the durable side of a presence transition.
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error

	// Block-list operations. Block and Unblock are idempotent.
	Block(ctx context.Context, userID, blockedID uuid.UUID) error
	Unblock(ctx context.Context, userID, blockedID uuid.UUID) error
	IsBlocked(ctx context.Context, userID, blockedID uuid.UUID) (bool, error)

	// Contact-list operations. AddContact is idempotent.
	AddContact(ctx context.Context, userID, contactID uuid.UUID) error
	HasContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
	ListContacts(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	ContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error

	// ListConversation returns live messages only, ascending by creation
	// time. Messages with expires_at <= now are never returned.
	ListConversation(ctx context.Context, conversationID string, now time.Time) ([]domain.Message, error)

	// DeleteExpired removes every message whose expiry has passed and
	// reports how many were removed. Idempotent.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteByID removes a single message. Deleting an absent message is
	// not an error.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
