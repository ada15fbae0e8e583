package ws

import (
	"context"
	"fmt"
	"log/slog"

	"linkup-realtime/internal/models"
	"linkup-realtime/internal/store"
)

// Pipeline orchestrates persist-then-broadcast for chat messages. The
// broadcast is a low-latency hint: the authoritative order is the
// persisted sequence, and clients reconcile against the store on
// fetch.
type Pipeline struct {
	store    store.Store
	registry *Registry
}

func NewPipeline(st store.Store, registry *Registry) *Pipeline {
	return &Pipeline{store: st, registry: registry}
}

// SendMessage persists a message and, only after the store assigned it
// an id and timestamp, broadcasts the canonical row. A persistence
// failure is returned to the caller with no broadcast; a broadcast
// that finds no joined members is a silent no-op since the message is
// already durable.
func (p *Pipeline) SendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error) {
	msg, err := p.store.PersistMessage(ctx, conversationID, senderID, receiverID, content)
	if err != nil {
		return nil, fmt.Errorf("send message in %s: %w", conversationID, err)
	}

	p.Deliver(msg)
	return msg, nil
}

// Deliver broadcasts an already-persisted message to the conversation
// room and to the receiver's personal room. The personal-room copy
// reaches devices that never joined the conversation room, e.g. a
// conversation-list badge.
func (p *Pipeline) Deliver(msg *models.Message) {
	slog.Debug("[PIPELINE] Delivering message", "message", msg.ID, "conversation", msg.ConversationID, "receiver", msg.ReceiverID)

	p.registry.Broadcast(ConversationRoom(msg.ConversationID), models.EventNewMessage, msg)
	p.registry.Broadcast(PersonalRoom(msg.ReceiverID), models.EventNewMessage, msg)
}
