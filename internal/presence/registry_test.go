package presence

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	userID uuid.UUID
}

func (c *fakeConn) UserID() uuid.UUID { return c.userID }
func (c *fakeConn) Send([]byte) bool  { return true }

func TestConnectionCountDrivenTransitions(t *testing.T) {
	req := require.New(t)

	r := NewRegistry()
	userID := uuid.New()
	c1, c2 := &fakeConn{userID}, &fakeConn{userID}
	now := time.Now()

	req.False(r.IsOnline(userID))

	req.True(r.Connect(userID, c1, now), "first connection flips online")
	req.False(r.Connect(userID, c2, now), "second connection is not a transition")
	req.True(r.IsOnline(userID))
	req.Len(r.Connections(userID), 2)

	last, _ := r.Disconnect(userID, c1, now)
	req.False(last, "one connection remains")
	req.True(r.IsOnline(userID))

	seen := now.Add(time.Minute)
	last, lastSeen := r.Disconnect(userID, c2, seen)
	req.True(last, "removing the final connection flips offline")
	req.Equal(seen, lastSeen)
	req.False(r.IsOnline(userID))
	req.Empty(r.Connections(userID))
}

func TestDisconnectUnknownIsNoop(t *testing.T) {
	req := require.New(t)

	r := NewRegistry()
	userID := uuid.New()

	last, _ := r.Disconnect(userID, &fakeConn{userID}, time.Now())
	req.False(last)
}

func TestDuplicateConnectIsNoop(t *testing.T) {
	req := require.New(t)

	r := NewRegistry()
	userID := uuid.New()
	c := &fakeConn{userID}
	now := time.Now()

	req.True(r.Connect(userID, c, now))
	req.False(r.Connect(userID, c, now))
	req.Len(r.Connections(userID), 1)
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	req := require.New(t)

	r := NewRegistry()
	userID := uuid.New()
	now := time.Now()

	const n = 64
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = &fakeConn{userID}
	}

	var firsts atomic.Int64
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Connect(userID, c, now) {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	req.Equal(int64(1), firsts.Load(), "exactly one connect is the first")
	req.Len(r.Connections(userID), n)

	var lasts atomic.Int64
	for _, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if last, _ := r.Disconnect(userID, c, now); last {
				lasts.Add(1)
			}
		}()
	}
	wg.Wait()

	req.Equal(int64(1), lasts.Load(), "exactly one disconnect is the last")
	req.False(r.IsOnline(userID))
}
