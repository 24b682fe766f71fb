package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/domain"
	"github.com/vanishchat/vanish/internal/repository"
)

var ErrCannotBlockSelf = errors.New("cannot block yourself")

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// List returns everyone except the requester, online users first.
func (s *UserService) List(ctx context.Context, requesterID uuid.UUID) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Block adds target to the user's block list. Blocking an already-blocked
// user is a no-op.
func (s *UserService) Block(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return ErrCannotBlockSelf
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}

	if err := s.userRepo.Block(ctx, userID, targetID); err != nil {
		return fmt.Errorf("blocking user: %w", err)
	}
	return nil
}

func (s *UserService) Unblock(ctx context.Context, userID, targetID uuid.UUID) error {
	if err := s.userRepo.Unblock(ctx, userID, targetID); err != nil {
		return fmt.Errorf("unblocking user: %w", err)
	}
	return nil
}

// Contacts returns the requester's contact list in linkage order.
func (s *UserService) Contacts(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	contacts, err := s.userRepo.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.User{}
	}
	return contacts, nil
}
