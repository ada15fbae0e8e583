package redis

import (
	"log/slog"

	"github.com/goccy/go-json"

	"linkup-realtime/internal/models"
)

// MessageDeliverer relays a persisted message to its rooms.
type MessageDeliverer interface {
	Deliver(msg *models.Message)
}

// NotificationEmitter fans a notification out to one user's devices.
type NotificationEmitter interface {
	Emit(targetUserID string, note *models.Notification)
}

// SubscribeToPush consumes the REST layer's push channels and relays
// each payload into the hub. Malformed payloads are logged and
// skipped; nothing is retried.
func SubscribeToPush(client *Client, deliverer MessageDeliverer, emitter NotificationEmitter) {
	slog.Info("[REDIS] Starting push subscription")

	pubsub := client.rdb.Subscribe(client.ctx, notificationChannel, messageChannel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(client.ctx); err != nil {
		slog.Error("[REDIS] Failed to receive subscription confirmation", "error", err)
		return
	}

	slog.Info("[REDIS] Subscribed to push channels", "channels", []string{notificationChannel, messageChannel})

	ch := pubsub.Channel()

	for msg := range ch {
		switch msg.Channel {
		case notificationChannel:
			var push notificationPush
			if err := json.Unmarshal([]byte(msg.Payload), &push); err != nil {
				slog.Error("[REDIS] Error unmarshaling notification push", "error", err, "payload", msg.Payload)
				continue
			}
			if push.TargetUserID == "" {
				slog.Warn("[REDIS] Notification push without target user")
				continue
			}
			emitter.Emit(push.TargetUserID, &push.Notification)

		case messageChannel:
			var push messagePush
			if err := json.Unmarshal([]byte(msg.Payload), &push); err != nil {
				slog.Error("[REDIS] Error unmarshaling message push", "error", err, "payload", msg.Payload)
				continue
			}
			if push.ReceiverID != "" {
				push.Message.ReceiverID = push.ReceiverID
			}
			deliverer.Deliver(&push.Message)
		}
	}

	slog.Info("[REDIS] Push subscription channel closed")
}
