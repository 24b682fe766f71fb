// Package expiry destroys messages whose time-to-live has elapsed. Two
// cooperating mechanisms: a per-message timer gives live "removed"
// notifications while the process is up, and a periodic sweep of the store
// catches messages whose timers were lost to a restart. A timer racing the
// sweep over the same row is expected and harmless; deleting an
// already-gone message counts as success.
package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vanishchat/vanish/internal/domain"
	"go.uber.org/zap"
)

// Store is the slice of the message store the reaper needs.
type Store interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Notifier pushes removal events to the participants' live connections.
// Best-effort: the durable delete is the source of truth.
type Notifier interface {
	NotifyMessageRemoved(msg *domain.Message)
}

type Reaper struct {
	store    Store
	notifier Notifier
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

func NewReaper(store Store, interval time.Duration, log *zap.Logger) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		log:      log,
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

// SetNotifier wires the live-notification sink. Set once at startup.
func (r *Reaper) SetNotifier(n Notifier) {
	r.notifier = n
}

// Schedule arms an in-process timer that fires at the message's expiry.
// A timer is not durable: if the process restarts first, the sweep covers
// the message instead (without a live notification).
func (r *Reaper) Schedule(msg *domain.Message) {
	d := time.Until(msg.ExpiresAt)
	if d < 0 {
		d = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timers[msg.ID]; ok {
		return
	}
	r.timers[msg.ID] = time.AfterFunc(d, func() {
		r.expire(msg)
	})
}

func (r *Reaper) expire(msg *domain.Message) {
	r.mu.Lock()
	delete(r.timers, msg.ID)
	r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.NotifyMessageRemoved(msg)
	}

	if err := r.store.DeleteByID(context.Background(), msg.ID); err != nil {
		r.log.Error("reaper: delete expired message failed",
			zap.String("message_id", msg.ID.String()),
			zap.Error(err))
	}
}

// Run drives the periodic sweep until the context is cancelled. Call this
// in a goroutine.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stopTimers()
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Sweep(ctx, time.Now()); err != nil {
				r.log.Error("reaper: sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep deletes every message in the store whose expiry has passed and
// returns the count. Idempotent: a second sweep with no new expirations
// deletes nothing.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := r.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.log.Info("reaper: swept expired messages", zap.Int64("count", deleted))
	}
	return deleted, nil
}

func (r *Reaper) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
