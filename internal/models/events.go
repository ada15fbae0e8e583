package models

import "time"

// Server-to-client event types.
const (
	EventNewMessage         = "new_message"
	EventUserTyping         = "user_typing"
	EventMessageReadReceipt = "message_read_receipt"
	EventNotification       = "notification"
	EventError              = "error"
)

// Client-to-server event types.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMessageRead       = "message_read"
	EventNotificationRead  = "notification_read"
)

// Event is the envelope for every frame sent to a client.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Message is the canonical chat message as persisted by the store. The
// relay never constructs one itself; it only forwards what the store
// returned after a write.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	ReceiverID     string     `json:"receiverId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// User is the external store's view of an account, only the fields the
// gateway needs to bind a connection.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Notification is a transient push payload produced by an unrelated
// product feature (likes, comments, connection requests, job matches).
type Notification struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link,omitempty"`
}

// Specific event data structures

type TypingData struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

type ReadReceiptData struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ReadAt         time.Time `json:"readAt"`
}

type ErrorData struct {
	Message string `json:"message"`
}
