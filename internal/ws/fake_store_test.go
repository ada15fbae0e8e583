package ws

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"linkup-realtime/internal/models"
	"linkup-realtime/internal/store"
)

type touchCall struct {
	userID string
	online bool
}

// fakeStore is an in-memory stand-in for the external persisted store.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	participants  map[string]map[string]struct{}
	messages      map[string]*models.Message
	notifications map[string]struct{}
	nextMessageID int

	persistErr error
	readErr    error
	touchErr   error
	touchBlock chan struct{}

	touches []touchCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*models.User),
		participants:  make(map[string]map[string]struct{}),
		messages:      make(map[string]*models.Message),
		notifications: make(map[string]struct{}),
	}
}

func (f *fakeStore) addUser(id string) {
	f.users[id] = &models.User{ID: id, Name: id, Email: id + "@example.com"}
}

func (f *fakeStore) addConversation(id string, userIDs ...string) {
	set := make(map[string]struct{})
	for _, userID := range userIDs {
		set[userID] = struct{}{}
	}
	f.participants[id] = set
}

func (f *fakeStore) addMessage(msg *models.Message) {
	f.messages[msg.ID] = msg
}

func (f *fakeStore) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) ConversationParticipants(ctx context.Context, conversationID string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set := make(map[string]struct{})
	for userID := range f.participants[conversationID] {
		set[userID] = struct{}{}
	}
	return set, nil
}

func (f *fakeStore) PersistMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.persistErr != nil {
		return nil, f.persistErr
	}

	f.nextMessageID++
	msg := &models.Message{
		ID:             fmt.Sprintf("m%d", f.nextMessageID),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) MarkMessageRead(ctx context.Context, messageID, readerUserID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return nil, f.readErr
	}

	msg, ok := f.messages[messageID]
	if !ok || msg.ReceiverID != readerUserID {
		return nil, store.ErrNotFound
	}
	readAt := time.Now()
	msg.ReadAt = &readAt

	copied := *msg
	return &copied, nil
}

func (f *fakeStore) TouchPresence(ctx context.Context, userID string, online bool) error {
	f.mu.Lock()
	block := f.touchBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.touchErr != nil {
		return f.touchErr
	}
	f.touches = append(f.touches, touchCall{userID: userID, online: online})
	return nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.notifications[notificationID]; !ok {
		return store.ErrNotFound
	}
	return nil
}

func (f *fakeStore) touchCalls() []touchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]touchCall(nil), f.touches...)
}

// newTestClient builds a connection that exists only as registry and
// channel state; tests read delivered frames straight off send.
func newTestClient(userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     "conn-" + userID,
		userID: userID,
		name:   userID,
		send:   make(chan []byte, 16),
		events: make(chan inboundEvent, 16),
		ctx:    ctx,
		cancel: cancel,
	}
}

func recvEvent(t *testing.T, c *Client) models.Event {
	t.Helper()

	select {
	case payload := <-c.send:
		var event models.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
	}
	return models.Event{}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case payload := <-c.send:
		t.Fatalf("unexpected event: %s", payload)
	default:
	}
}

// decodeData re-marshals the envelope's data field into a typed
// payload struct.
func decodeData(t *testing.T, event models.Event, v any) {
	t.Helper()

	raw, err := json.Marshal(event.Data)
	if err != nil {
		t.Fatalf("marshal event data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
}
