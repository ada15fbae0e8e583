package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkup-realtime/internal/models"
	"linkup-realtime/internal/store"
)

// Receipts orchestrates persist-then-notify for read acknowledgements.
type Receipts struct {
	store    store.Store
	registry *Registry
}

func NewReceipts(st store.Store, registry *Registry) *Receipts {
	return &Receipts{store: st, registry: registry}
}

// MarkRead stamps readAt on the message and relays a receipt to the
// original sender's personal room only; the rest of the conversation
// has no delivery-state UI to update. The stamp only lands for the
// message's receiver, so a client cannot mark someone else's messages.
// The store write is last-write-wins, so replaying the call refreshes
// the stamp rather than rejecting.
func (r *Receipts) MarkRead(ctx context.Context, messageID, conversationID, readerUserID string) error {
	msg, err := r.store.MarkMessageRead(ctx, messageID, readerUserID)
	if err != nil {
		return fmt.Errorf("mark message %s read by %s: %w", messageID, readerUserID, err)
	}

	var readAt time.Time
	if msg.ReadAt != nil {
		readAt = *msg.ReadAt
	}

	slog.Debug("[RECEIPTS] Relaying read receipt", "message", msg.ID, "reader", readerUserID, "sender", msg.SenderID)

	r.registry.Broadcast(PersonalRoom(msg.SenderID), models.EventMessageReadReceipt, models.ReadReceiptData{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		ReadAt:         readAt,
	})
	return nil
}
