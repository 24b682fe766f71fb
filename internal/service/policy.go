package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/repository"
)

// DeliveryPolicy decides whether a message may flow between two users and
// maintains the contact-list linkage created by a first successful message.
type DeliveryPolicy struct {
	userRepo repository.UserRepository
}

func NewDeliveryPolicy(userRepo repository.UserRepository) *DeliveryPolicy {
	return &DeliveryPolicy{userRepo: userRepo}
}

// CanDeliver is recipient-authoritative: only the recipient's block list
// decides. The sender blocking the recipient does not stop the send.
func (p *DeliveryPolicy) CanDeliver(ctx context.Context, senderID, recipientID uuid.UUID) (bool, error) {
	blocked, err := p.userRepo.IsBlocked(ctx, recipientID, senderID)
	if err != nil {
		return false, fmt.Errorf("checking block list: %w", err)
	}
	return !blocked, nil
}

// EnsureContact adds each user to the other's contact list. Idempotent:
// membership is checked first, and the append itself is a no-op when the
// entry already exists.
func (p *DeliveryPolicy) EnsureContact(ctx context.Context, a, b uuid.UUID) error {
	has, err := p.userRepo.HasContact(ctx, a, b)
	if err != nil {
		return fmt.Errorf("checking contact list: %w", err)
	}
	if has {
		return nil
	}

	if err := p.userRepo.AddContact(ctx, a, b); err != nil {
		return fmt.Errorf("adding contact: %w", err)
	}
	if err := p.userRepo.AddContact(ctx, b, a); err != nil {
		return fmt.Errorf("adding reverse contact: %w", err)
	}
	return nil
}
