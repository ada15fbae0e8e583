package ws

import (
	"log/slog"
	"sync"
	"time"

	"linkup-realtime/internal/models"
)

type typingKey struct {
	conversationID string
	fromUserID     string
	toUserID       string
}

// TypingRelay passes ephemeral typing signals straight to the
// receiver's personal room. Nothing is persisted. Delivering to the
// personal room instead of the conversation room guarantees the signal
// reaches only the intended recipient's devices even if conversation
// membership is stale.
//
// A server-side deadline per signal, re-armed on every start,
// synthesizes a stop when the client never sends one, so a crashed
// sender cannot leave the receiver's UI stuck on "typing".
type TypingRelay struct {
	registry *Registry
	ttl      time.Duration

	mu     sync.Mutex
	timers map[typingKey]*time.Timer
}

func NewTypingRelay(registry *Registry, ttl time.Duration) *TypingRelay {
	return &TypingRelay{
		registry: registry,
		ttl:      ttl,
		timers:   make(map[typingKey]*time.Timer),
	}
}

func (t *TypingRelay) Start(conversationID, fromUserID, toUserID string) {
	t.relay(conversationID, fromUserID, toUserID, true)

	if t.ttl <= 0 {
		return
	}

	key := typingKey{conversationID, fromUserID, toUserID}
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Reset(t.ttl)
		return
	}
	t.timers[key] = time.AfterFunc(t.ttl, func() {
		t.expire(key)
	})
}

func (t *TypingRelay) Stop(conversationID, fromUserID, toUserID string) {
	key := typingKey{conversationID, fromUserID, toUserID}
	t.mu.Lock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()

	t.relay(conversationID, fromUserID, toUserID, false)
}

func (t *TypingRelay) expire(key typingKey) {
	t.mu.Lock()
	if _, ok := t.timers[key]; !ok {
		// An explicit stop won the race
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	t.mu.Unlock()

	slog.Debug("[TYPING] No stop received, synthesizing one",
		"conversation", key.conversationID, "from", key.fromUserID, "to", key.toUserID)
	t.relay(key.conversationID, key.fromUserID, key.toUserID, false)
}

func (t *TypingRelay) relay(conversationID, fromUserID, toUserID string, isTyping bool) {
	t.registry.Broadcast(PersonalRoom(toUserID), models.EventUserTyping, models.TypingData{
		ConversationID: conversationID,
		UserID:         fromUserID,
		IsTyping:       isTyping,
	})
}
