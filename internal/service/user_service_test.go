package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBlockUnblock(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	alice, bob := testUser("alice"), testUser("bob")
	svc := NewUserService(newFakeUserRepo(alice, bob))

	req.ErrorIs(svc.Block(ctx, alice.ID, alice.ID), ErrCannotBlockSelf)
	req.ErrorIs(svc.Block(ctx, alice.ID, uuid.New()), ErrUserNotFound)

	req.NoError(svc.Block(ctx, alice.ID, bob.ID))
	req.NoError(svc.Block(ctx, alice.ID, bob.ID), "blocking twice is a no-op")

	req.NoError(svc.Unblock(ctx, alice.ID, bob.ID))
	req.NoError(svc.Unblock(ctx, alice.ID, bob.ID), "unblocking twice is a no-op")
}

func TestListExcludesRequester(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	alice, bob := testUser("alice"), testUser("bob")
	svc := NewUserService(newFakeUserRepo(alice, bob))

	users, err := svc.List(ctx, alice.ID)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(bob.ID, users[0].ID)
}

func TestGetUnknownUser(t *testing.T) {
	req := require.New(t)

	svc := NewUserService(newFakeUserRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	req.ErrorIs(err, ErrUserNotFound)
}
