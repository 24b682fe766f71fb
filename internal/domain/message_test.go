package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewMessageExpiry(t *testing.T) {
	req := require.New(t)

	sender, receiver := uuid.New(), uuid.New()
	now := time.Now()

	msg := NewMessage(sender, receiver, "hi", now, time.Hour)

	req.NotEqual(uuid.Nil, msg.ID)
	req.Equal(ConversationID(sender, receiver), msg.ConversationID)
	req.Equal(now, msg.CreatedAt)
	req.Equal(now.Add(time.Hour), msg.ExpiresAt)
	req.True(msg.ExpiresAt.After(msg.CreatedAt))
}

func TestMessageLive(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	msg := NewMessage(uuid.New(), uuid.New(), "hi", now, time.Hour)

	req.True(msg.Live(now))
	req.True(msg.Live(now.Add(time.Hour-time.Second)))
	req.False(msg.Live(now.Add(time.Hour)), "a message is dead exactly at its expiry")
	req.False(msg.Live(now.Add(2*time.Hour)))
}
