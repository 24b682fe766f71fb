package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vanishchat/vanish/internal/domain"
	"github.com/vanishchat/vanish/internal/presence"
	"go.uber.org/zap"
)

// hubUserRepo is an in-memory UserRepository carrying just the state the
// hub touches: presence writes and the contact graph.
type hubUserRepo struct {
	mu       sync.Mutex
	contacts map[uuid.UUID][]uuid.UUID
	presence map[uuid.UUID]bool
}

func newHubUserRepo() *hubUserRepo {
	return &hubUserRepo{
		contacts: make(map[uuid.UUID][]uuid.UUID),
		presence: make(map[uuid.UUID]bool),
	}
}

func (r *hubUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (r *hubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, nil
}
func (r *hubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}
func (r *hubUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, nil
}
func (r *hubUserRepo) List(ctx context.Context, exceptID uuid.UUID) ([]domain.User, error) {
	return nil, nil
}

func (r *hubUserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence[id] = online
	return nil
}

func (r *hubUserRepo) online(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence[id]
}

func (r *hubUserRepo) Block(ctx context.Context, userID, blockedID uuid.UUID) error   { return nil }
func (r *hubUserRepo) Unblock(ctx context.Context, userID, blockedID uuid.UUID) error { return nil }
func (r *hubUserRepo) IsBlocked(ctx context.Context, userID, blockedID uuid.UUID) (bool, error) {
	return false, nil
}
func (r *hubUserRepo) AddContact(ctx context.Context, userID, contactID uuid.UUID) error { return nil }
func (r *hubUserRepo) HasContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	return false, nil
}
func (r *hubUserRepo) ListContacts(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	return nil, nil
}

func (r *hubUserRepo) ContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contacts[userID], nil
}

func newTestHub(t *testing.T, users *hubUserRepo) (*Hub, *presence.Registry) {
	t.Helper()
	registry := presence.NewRegistry()
	hub := NewHub(registry, users, nil, true, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, registry
}

func registerClient(t *testing.T, hub *Hub, registry *presence.Registry, userID uuid.UUID) *Client {
	t.Helper()
	req := require.New(t)

	client := NewClient(hub, nil, userID)
	before := len(registry.Connections(userID))
	hub.register <- client
	req.Eventually(func() bool {
		return len(registry.Connections(userID)) == before+1
	}, time.Second, 5*time.Millisecond)
	return client
}

func unregisterClient(t *testing.T, hub *Hub, registry *presence.Registry, client *Client) {
	t.Helper()
	req := require.New(t)

	before := len(registry.Connections(client.userID))
	hub.unregister <- client
	req.Eventually(func() bool {
		return len(registry.Connections(client.userID)) == before-1
	}, time.Second, 5*time.Millisecond)
}

func readFrame(t *testing.T, client *Client) Event {
	t.Helper()

	select {
	case data := <-client.send:
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Event{}
	}
}

func TestSendOnSnapshotAfterUnregister(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub(t, newHubUserRepo())

	userID := uuid.New()
	client := registerClient(t, hub, registry, userID)

	// The notifier and reaper paths snapshot connections before pushing.
	// A connection unregistered between the snapshot and the push must
	// absorb the frame, not panic.
	conns := registry.Connections(userID)
	req.Len(conns, 1)

	unregisterClient(t, hub, registry, client)

	req.NotPanics(func() {
		conns[0].Send([]byte(`{"type":"message:removed"}`))
	})
	req.NotPanics(func() {
		hub.SendToUser(userID, []byte(`{"type":"message:receive"}`))
	})
}

func TestConcurrentSendToUserDuringChurn(t *testing.T) {
	hub, registry := newTestHub(t, newHubUserRepo())
	userID := uuid.New()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data := []byte(`{"type":"message:receive"}`)
			for {
				select {
				case <-done:
					return
				default:
					for _, conn := range registry.Connections(userID) {
						conn.Send(data)
					}
					hub.SendToUser(userID, data)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		client := registerClient(t, hub, registry, userID)
		unregisterClient(t, hub, registry, client)
	}

	close(done)
	wg.Wait()
}

func TestPresenceFanOutToContacts(t *testing.T) {
	req := require.New(t)
	users := newHubUserRepo()
	hub, registry := newTestHub(t, users)

	userID := uuid.New()
	contactID := uuid.New()
	strangerID := uuid.New()
	users.contacts[userID] = []uuid.UUID{contactID}

	contact := registerClient(t, hub, registry, contactID)
	stranger := registerClient(t, hub, registry, strangerID)

	client := registerClient(t, hub, registry, userID)
	req.Eventually(func() bool { return users.online(userID) }, time.Second, 5*time.Millisecond)

	evt := readFrame(t, contact)
	req.Equal(EventTypeUserOnline, evt.Type)
	var online PresencePayload
	req.NoError(json.Unmarshal(evt.Payload, &online))
	req.Equal(userID, online.UserID)
	req.Nil(online.LastSeen)
	req.Empty(stranger.send)

	unregisterClient(t, hub, registry, client)
	req.Eventually(func() bool { return !users.online(userID) }, time.Second, 5*time.Millisecond)

	evt = readFrame(t, contact)
	req.Equal(EventTypeUserOffline, evt.Type)
	var offline PresencePayload
	req.NoError(json.Unmarshal(evt.Payload, &offline))
	req.Equal(userID, offline.UserID)
	req.NotNil(offline.LastSeen)
}

func TestPresenceTransitionsOnlyOnFirstAndLast(t *testing.T) {
	req := require.New(t)
	users := newHubUserRepo()
	hub, registry := newTestHub(t, users)

	userID := uuid.New()
	contactID := uuid.New()
	users.contacts[userID] = []uuid.UUID{contactID}
	contact := registerClient(t, hub, registry, contactID)

	first := registerClient(t, hub, registry, userID)
	req.Equal(EventTypeUserOnline, readFrame(t, contact).Type)

	second := registerClient(t, hub, registry, userID)
	req.Empty(contact.send)

	unregisterClient(t, hub, registry, second)
	req.Empty(contact.send)
	req.True(users.online(userID))

	unregisterClient(t, hub, registry, first)
	req.Equal(EventTypeUserOffline, readFrame(t, contact).Type)
}

func TestTypingRelayedToRecipientOnly(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub(t, newHubUserRepo())

	senderID := uuid.New()
	recipientID := uuid.New()
	bystanderID := uuid.New()

	sender := registerClient(t, hub, registry, senderID)
	recipient := registerClient(t, hub, registry, recipientID)
	bystander := registerClient(t, hub, registry, bystanderID)

	payload, err := json.Marshal(TypingInPayload{RecipientID: recipientID})
	req.NoError(err)
	hub.HandleTyping(sender, &Event{Type: EventTypeTypingStart, Payload: payload})

	evt := readFrame(t, recipient)
	req.Equal(EventTypeTypingStart, evt.Type)
	var typing TypingPayload
	req.NoError(json.Unmarshal(evt.Payload, &typing))
	req.Equal(senderID, typing.UserID)

	req.Empty(sender.send)
	req.Empty(bystander.send)
}

func TestTypingRejectsMissingRecipient(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub(t, newHubUserRepo())

	sender := registerClient(t, hub, registry, uuid.New())
	hub.HandleTyping(sender, &Event{Type: EventTypeTypingStart, Payload: []byte(`{}`)})

	evt := readFrame(t, sender)
	req.Equal(EventTypeError, evt.Type)
}

func TestBroadcastReachesSubscribersOnly(t *testing.T) {
	req := require.New(t)
	hub, registry := newTestHub(t, newHubUserRepo())

	subscriberID := uuid.New()
	otherID := uuid.New()
	subscriber := registerClient(t, hub, registry, subscriberID)
	other := registerClient(t, hub, registry, otherID)

	conversationID := domain.ConversationID(subscriberID, otherID)
	subscriber.Subscribe(conversationID)

	evt, err := NewEvent(EventTypeMessageNew, &conversationID, MessageRemovedPayload{MessageID: uuid.New()})
	req.NoError(err)
	hub.BroadcastToConversation(conversationID, evt, nil)

	got := readFrame(t, subscriber)
	req.Equal(EventTypeMessageNew, got.Type)
	req.Empty(other.send)

	hub.BroadcastToConversation(conversationID, evt, &subscriberID)
	time.Sleep(50 * time.Millisecond)
	req.Empty(subscriber.send)
}
