package ws

import (
	"log/slog"

	"linkup-realtime/internal/models"
)

// Notifier is the one-way push primitive used by every unrelated
// product feature. No retry and no queue: a target with zero live
// connections simply does not receive the push, and the producing
// feature is responsible for the durable record the client fetches on
// next load.
type Notifier struct {
	registry *Registry
}

func NewNotifier(registry *Registry) *Notifier {
	return &Notifier{registry: registry}
}

// Emit delivers a notification to every connected device of the target
// user.
func (n *Notifier) Emit(targetUserID string, note *models.Notification) {
	slog.Debug("[NOTIFY] Emitting notification", "user", targetUserID, "type", note.Type)
	n.registry.Broadcast(PersonalRoom(targetUserID), models.EventNotification, note)
}
