package store

import (
	"context"
	"errors"

	"linkup-realtime/internal/models"
)

// ErrNotFound is returned when a referenced user, message, or
// notification does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persisted-store collaborator. Users, conversations,
// messages, and notifications are owned by the product's REST layer;
// the realtime core only performs the lookups and writes below, each
// assumed atomic on the store side.
type Store interface {
	// LookupUser resolves a user id, ErrNotFound if the account is gone.
	LookupUser(ctx context.Context, userID string) (*models.User, error)

	// ConversationParticipants returns the set of user ids allowed in a
	// conversation.
	ConversationParticipants(ctx context.Context, conversationID string) (map[string]struct{}, error)

	// PersistMessage writes a chat message and returns the canonical row
	// (id and createdAt assigned by the store).
	PersistMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*models.Message, error)

	// MarkMessageRead stamps readAt on a message and returns the updated
	// row. The stamp only lands when readerUserID is the message's
	// receiver; any other caller gets ErrNotFound. Re-invoking refreshes
	// the stamp (last write wins).
	MarkMessageRead(ctx context.Context, messageID, readerUserID string) (*models.Message, error)

	// TouchPresence records a user's online flag and last-seen timestamp.
	TouchPresence(ctx context.Context, userID string, online bool) error

	// MarkNotificationRead flags a durable notification as read.
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
}
