package ws

import (
	"context"
	"log/slog"
	"time"

	"linkup-realtime/internal/auth"
	"linkup-realtime/internal/store"
)

// Hub wires the registry, presence tracker, and relay components
// together and serializes connection registration so that presence
// counts are adjusted exactly once per connect and once per
// disconnect.
type Hub struct {
	registry *Registry
	presence *Presence
	typing   *TypingRelay
	pipeline *Pipeline
	receipts *Receipts
	notifier *Notifier

	store    store.Store
	verifier *auth.Verifier

	register   chan *Client
	unregister chan *Client
}

func NewHub(st store.Store, verifier *auth.Verifier, typingTTL time.Duration) *Hub {
	registry := NewRegistry(st)
	return &Hub{
		registry:   registry,
		presence:   NewPresence(st),
		typing:     NewTypingRelay(registry, typingTTL),
		pipeline:   NewPipeline(st, registry),
		receipts:   NewReceipts(st, registry),
		notifier:   NewNotifier(registry),
		store:      st,
		verifier:   verifier,
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Pipeline exposes the message delivery pipeline to the REST layer and
// the push bridge.
func (h *Hub) Pipeline() *Pipeline {
	return h.pipeline
}

// Notifier exposes the notification fan-out primitive.
func (h *Hub) Notifier() *Notifier {
	return h.notifier
}

// Presence exposes online/last-seen lookups.
func (h *Hub) Presence() *Presence {
	return h.presence
}

func (h *Hub) Run() {
	slog.Info("[HUB] Starting hub event loop")
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient binds an authenticated connection into its owner's
// personal room and counts presence up.
func (h *Hub) registerClient(client *Client) {
	h.registry.JoinPersonal(client)
	h.presence.Connect(context.Background(), client.userID)
	slog.Info("[HUB] Client registered", "user", client.userID, "conn", client.id)
}

// unregisterClient tears down all room membership, closes the send
// channel, and counts presence down.
func (h *Hub) unregisterClient(client *Client) {
	h.registry.RemoveClient(client)
	client.closeSend()
	h.presence.Disconnect(context.Background(), client.userID)
	slog.Info("[HUB] Client unregistered", "user", client.userID, "conn", client.id)
}
