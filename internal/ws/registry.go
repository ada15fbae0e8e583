package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"linkup-realtime/internal/models"
	"linkup-realtime/internal/store"
)

// ErrNotParticipant is returned when a connection tries to join a
// conversation its owner does not belong to.
var ErrNotParticipant = errors.New("user is not a participant of conversation")

// PersonalRoom is the room joined by every connection of one user.
func PersonalRoom(userID string) string {
	return "user:" + userID
}

// ConversationRoom is the room joined by conversation participants.
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}

// Registry holds room membership for all live connections. It is the
// only component that knows which connection can hear what. All state
// is in-process; delivery is best-effort and at-most-once per
// currently-connected client.
type Registry struct {
	store store.Store

	mu sync.RWMutex
	// roomId -> set of member connections
	rooms map[string]map[*Client]struct{}
	// connection -> set of joined roomIds
	joined map[*Client]map[string]struct{}
}

func NewRegistry(st store.Store) *Registry {
	return &Registry{
		store:  st,
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// JoinPersonal binds a connection into its owner's personal room. No
// authorization check: the gateway already authenticated the owner.
func (r *Registry) JoinPersonal(client *Client) {
	r.join(client, PersonalRoom(client.userID))
}

// JoinConversation verifies the connection's owner against the
// conversation's participant set before recording membership. A failed
// check never leaves a partial room entry.
func (r *Registry) JoinConversation(ctx context.Context, client *Client, conversationID string) error {
	participants, err := r.store.ConversationParticipants(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("verify participants of %s: %w", conversationID, err)
	}
	if _, ok := participants[client.userID]; !ok {
		return fmt.Errorf("%w: user %s, conversation %s", ErrNotParticipant, client.userID, conversationID)
	}

	r.join(client, ConversationRoom(conversationID))
	return nil
}

func (r *Registry) join(client *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		slog.Debug("[REGISTRY] Creating room", "room", roomID)
		r.rooms[roomID] = make(map[*Client]struct{})
	}
	r.rooms[roomID][client] = struct{}{}

	if r.joined[client] == nil {
		r.joined[client] = make(map[string]struct{})
	}
	r.joined[client][roomID] = struct{}{}

	slog.Debug("[REGISTRY] Client joined room", "room", roomID, "user", client.userID, "members", len(r.rooms[roomID]))
}

// Leave removes a connection from one room, deallocating the room when
// it empties.
func (r *Registry) Leave(client *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(client, roomID)
}

// RemoveClient removes a connection from every room it joined. Called
// exactly once on disconnect, before the send channel is closed.
func (r *Registry) RemoveClient(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.joined[client] {
		r.leaveLocked(client, roomID)
	}
	delete(r.joined, client)
}

func (r *Registry) leaveLocked(client *Client, roomID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, client)
	if joined, ok := r.joined[client]; ok {
		delete(joined, roomID)
	}
	if len(members) == 0 {
		slog.Debug("[REGISTRY] Room empty, removing", "room", roomID)
		delete(r.rooms, roomID)
	}
}

// Broadcast delivers an event to every connection currently joined to
// the room. Members with a full send buffer are skipped; there is no
// queue or replay.
func (r *Registry) Broadcast(roomID, eventType string, data any) {
	event := models.Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("[REGISTRY] Failed to marshal event", "type", eventType, "room", roomID, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[roomID]
	if !ok {
		slog.Debug("[REGISTRY] No members in room", "room", roomID, "type", eventType)
		return
	}

	sent := 0
	for client := range members {
		if client.enqueue(payload) {
			sent++
		} else {
			slog.Warn("[REGISTRY] Dropping event for client", "user", client.userID, "room", roomID, "type", eventType)
		}
	}
	slog.Debug("[REGISTRY] Broadcast complete", "room", roomID, "type", eventType, "sent", sent)
}

// RoomUsers returns the owner ids of every connection in a room.
func (r *Registry) RoomUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []string{}
	for client := range r.rooms[roomID] {
		users = append(users, client.userID)
	}
	return users
}
