package redis

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"linkup-realtime/internal/models"
)

// Channels the REST layer publishes to after its own transaction
// commits. They are the out-of-process form of the two push
// primitives the core exposes.
const (
	notificationChannel = "push:notification"
	messageChannel      = "push:message"
)

type notificationPush struct {
	TargetUserID string              `json:"targetUserId"`
	Notification models.Notification `json:"notification"`
}

type messagePush struct {
	ReceiverID string         `json:"receiverId"`
	Message    models.Message `json:"message"`
}

type Client struct {
	rdb *redis.Client
	ctx context.Context
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		panic(err)
	}

	rdb := redis.NewClient(opt)
	ctx := context.Background()

	// Test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		panic(err)
	}

	slog.Info("Connected to Redis")

	return &Client{
		rdb: rdb,
		ctx: ctx,
	}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// PushNotification publishes a notification for the core to fan out to
// the target user's connected devices.
func (c *Client) PushNotification(targetUserID string, note models.Notification) error {
	return c.publish(notificationChannel, notificationPush{
		TargetUserID: targetUserID,
		Notification: note,
	})
}

// PushMessage publishes an already-persisted message for the core to
// relay to the conversation room and the receiver's personal room.
func (c *Client) PushMessage(receiverID string, msg models.Message) error {
	return c.publish(messageChannel, messagePush{
		ReceiverID: receiverID,
		Message:    msg,
	})
}

func (c *Client) publish(channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("[REDIS] Failed to marshal push", "channel", channel, "error", err)
		return err
	}

	if err := c.rdb.Publish(c.ctx, channel, data).Err(); err != nil {
		slog.Error("[REDIS] Failed to publish push", "channel", channel, "error", err)
		return err
	}
	return nil
}
