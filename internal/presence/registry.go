// Package presence is the single authority for who is online. It tracks the
// live connections per user; the online/offline transitions are driven by
// the connection count, computed under the lock so concurrent connects and
// disconnects for the same user cannot race the first/last decision.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is a live real-time connection able to receive raw event frames.
type Conn interface {
	UserID() uuid.UUID

	// Send queues data without blocking. It returns false when the
	// connection's buffer is full and the frame was dropped.
	Send(data []byte) bool
}

type entry struct {
	conns    map[Conn]struct{}
	lastSeen time.Time
}

type Registry struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*entry
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[uuid.UUID]*entry)}
}

// Connect adds the connection to the user's set and reports whether this
// was the user's first live connection (the offline→online transition).
func (r *Registry) Connect(userID uuid.UUID, c Conn, now time.Time) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.users[userID]
	if !ok {
		e = &entry{conns: make(map[Conn]struct{})}
		r.users[userID] = e
	}
	if _, dup := e.conns[c]; dup {
		return false
	}
	e.conns[c] = struct{}{}
	e.lastSeen = now
	return len(e.conns) == 1
}

// Disconnect removes the connection and reports whether the user just went
// offline, along with the last-seen stamp for that transition. Removing an
// unknown connection is a no-op.
func (r *Registry) Disconnect(userID uuid.UUID, c Conn, now time.Time) (last bool, lastSeen time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.users[userID]
	if !ok {
		return false, time.Time{}
	}
	if _, present := e.conns[c]; !present {
		return false, time.Time{}
	}

	delete(e.conns, c)
	e.lastSeen = now
	if len(e.conns) > 0 {
		return false, time.Time{}
	}

	delete(r.users, userID)
	return true, now
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.users[userID]
	return ok && len(e.conns) > 0
}

// Connections returns a snapshot of the user's live connections, possibly
// empty. Safe to iterate without holding the registry lock.
func (r *Registry) Connections(userID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.users[userID]
	if !ok {
		return nil
	}
	conns := make([]Conn, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	return conns
}
