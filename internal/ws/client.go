package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"linkup-realtime/internal/models"
	"linkup-realtime/internal/store"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 64 * 1024 // 64 KB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Validate origin in production
		return true
	},
}

// Client is one live transport session, bound to exactly one user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	events chan inboundEvent
	cancel context.CancelFunc
	ctx    context.Context

	id     string
	userID string
	name   string

	// Guards send against writes racing the disconnect-path close; the
	// dispatch goroutine may still be draining buffered events when the
	// hub tears the connection down.
	sendMu sync.Mutex
	closed bool
}

// enqueue hands a frame to the write pump. Reports false when the
// connection is closed or its buffer is full; delivery is best-effort
// either way.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once, after which enqueue
// becomes a no-op.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// inboundEvent is one decoded client frame, dispatched in FIFO order
// through the per-connection events channel.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type typingPayload struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
}

type messageReadPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type notificationReadPayload struct {
	NotificationID string `json:"notificationId"`
}

func newClient(hub *Hub, conn *websocket.Conn, userID, name string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		events: make(chan inboundEvent, 32),
		cancel: cancel,
		ctx:    ctx,
		id:     uuid.New().String(),
		userID: userID,
		name:   name,
	}
}

// ReadPump pumps frames from the WebSocket into the events channel.
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("[CLIENT] Unexpected close", "user", c.userID, "conn", c.id, "error", err)
			}
			break
		}

		var event inboundEvent
		if err := json.Unmarshal(message, &event); err != nil {
			slog.Error("[CLIENT] Error unmarshaling frame", "user", c.userID, "conn", c.id, "error", err)
			continue
		}
		if event.Type == "" {
			slog.Warn("[CLIENT] No 'type' field in frame", "user", c.userID, "conn", c.id)
			continue
		}

		select {
		case c.events <- event:
		case <-c.ctx.Done():
			return
		}
	}
}

// DispatchLoop consumes decoded events one at a time, preserving the
// connection's FIFO order. It stops when the connection's context is
// cancelled; an in-flight external write that already committed is
// never reversed.
func (c *Client) DispatchLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case event := <-c.events:
			c.handleEvent(event)
		}
	}
}

func (c *Client) handleEvent(event inboundEvent) {
	switch event.Type {
	case models.EventJoinConversation:
		var payload conversationPayload
		if !c.decode(event, &payload) || payload.ConversationID == "" {
			return
		}
		if err := c.hub.registry.JoinConversation(c.ctx, c, payload.ConversationID); err != nil {
			if errors.Is(err, ErrNotParticipant) {
				slog.Warn("[CLIENT] Conversation join rejected", "user", c.userID, "conversation", payload.ConversationID)
				c.sendEvent(models.EventError, models.ErrorData{
					Message: "not a participant of conversation " + payload.ConversationID,
				})
				return
			}
			slog.Error("[CLIENT] Failed to join conversation", "user", c.userID, "conversation", payload.ConversationID, "error", err)
		}

	case models.EventLeaveConversation:
		var payload conversationPayload
		if !c.decode(event, &payload) || payload.ConversationID == "" {
			return
		}
		c.hub.registry.Leave(c, ConversationRoom(payload.ConversationID))

	case models.EventTypingStart:
		var payload typingPayload
		if !c.decode(event, &payload) || payload.ReceiverID == "" {
			return
		}
		c.hub.typing.Start(payload.ConversationID, c.userID, payload.ReceiverID)

	case models.EventTypingStop:
		var payload typingPayload
		if !c.decode(event, &payload) || payload.ReceiverID == "" {
			return
		}
		c.hub.typing.Stop(payload.ConversationID, c.userID, payload.ReceiverID)

	case models.EventMessageRead:
		var payload messageReadPayload
		if !c.decode(event, &payload) || payload.MessageID == "" {
			return
		}
		if err := c.hub.receipts.MarkRead(c.ctx, payload.MessageID, payload.ConversationID, c.userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.Warn("[CLIENT] Read receipt for unknown message", "user", c.userID, "message", payload.MessageID)
				return
			}
			slog.Error("[CLIENT] Failed to mark message read", "user", c.userID, "message", payload.MessageID, "error", err)
		}

	case models.EventNotificationRead:
		var payload notificationReadPayload
		if !c.decode(event, &payload) || payload.NotificationID == "" {
			return
		}
		if err := c.hub.store.MarkNotificationRead(c.ctx, payload.NotificationID, c.userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.Warn("[CLIENT] Ack for unknown notification", "user", c.userID, "notification", payload.NotificationID)
				return
			}
			slog.Error("[CLIENT] Failed to mark notification read", "user", c.userID, "notification", payload.NotificationID, "error", err)
		}

	default:
		slog.Warn("[CLIENT] Unknown event type", "type", event.Type, "user", c.userID, "conn", c.id)
	}
}

func (c *Client) decode(event inboundEvent, payload any) bool {
	if err := json.Unmarshal(event.Data, payload); err != nil {
		slog.Warn("[CLIENT] Bad payload", "type", event.Type, "user", c.userID, "error", err)
		return false
	}
	return true
}

// sendEvent pushes an event to this connection only.
func (c *Client) sendEvent(eventType string, data any) {
	event := models.Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("[CLIENT] Failed to marshal event", "type", eventType, "user", c.userID, "error", err)
		return
	}

	if !c.enqueue(payload) {
		slog.Warn("[CLIENT] Dropping event", "type", eventType, "user", c.userID, "conn", c.id)
	}
}

// WritePump pumps outbound frames from the send channel to the
// WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("[CLIENT] Failed to write frame", "user", c.userID, "conn", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Error("[CLIENT] Failed to send ping", "user", c.userID, "conn", c.id, "error", err)
				return
			}
		}
	}
}
