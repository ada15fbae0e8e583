package ws

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"linkup-realtime/internal/auth"
	"linkup-realtime/internal/models"
)

func newTestHub(st *fakeStore) *Hub {
	return NewHub(st, auth.NewVerifier("test-secret", ""), time.Second)
}

func inbound(t *testing.T, eventType string, payload any) inboundEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return inboundEvent{Type: eventType, Data: data}
}

func TestClient_JoinConversationAuthorized(t *testing.T) {
	st := newFakeStore()
	st.addConversation("conv1", "A", "B")
	hub := newTestHub(st)

	client := newTestClient("A")
	client.hub = hub

	client.handleEvent(inbound(t, models.EventJoinConversation, map[string]string{"conversationId": "conv1"}))

	users := hub.registry.RoomUsers(ConversationRoom("conv1"))
	if len(users) != 1 || users[0] != "A" {
		t.Errorf("RoomUsers(conv1) = %v, want [A]", users)
	}
	assertNoEvent(t, client)
}

func TestClient_JoinConversationRejected(t *testing.T) {
	st := newFakeStore()
	st.addConversation("conv1", "A", "B")
	st.addConversation("conv2", "B", "C")
	hub := newTestHub(st)

	client := newTestClient("A")
	client.hub = hub

	client.handleEvent(inbound(t, models.EventJoinConversation, map[string]string{"conversationId": "conv2"}))

	if users := hub.registry.RoomUsers(ConversationRoom("conv2")); len(users) != 0 {
		t.Errorf("rejected join created membership: %v", users)
	}

	// The connection stays alive and is told why
	event := recvEvent(t, client)
	if event.Type != models.EventError {
		t.Fatalf("event.Type = %q, want %q", event.Type, models.EventError)
	}
}

func TestClient_LeaveConversation(t *testing.T) {
	st := newFakeStore()
	st.addConversation("conv1", "A")
	hub := newTestHub(st)

	client := newTestClient("A")
	client.hub = hub

	client.handleEvent(inbound(t, models.EventJoinConversation, map[string]string{"conversationId": "conv1"}))
	client.handleEvent(inbound(t, models.EventLeaveConversation, map[string]string{"conversationId": "conv1"}))

	if users := hub.registry.RoomUsers(ConversationRoom("conv1")); len(users) != 0 {
		t.Errorf("RoomUsers(conv1) = %v after leave, want empty", users)
	}
}

func TestClient_TypingEventsReachReceiver(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(st)

	sender := newTestClient("A")
	sender.hub = hub
	receiver := newTestClient("B")
	hub.registry.JoinPersonal(receiver)

	sender.handleEvent(inbound(t, models.EventTypingStart, map[string]string{
		"conversationId": "conv1",
		"receiverId":     "B",
	}))

	var data models.TypingData
	decodeData(t, recvEvent(t, receiver), &data)
	if data.UserID != "A" || !data.IsTyping {
		t.Errorf("typing data = %+v, want A typing", data)
	}

	sender.handleEvent(inbound(t, models.EventTypingStop, map[string]string{
		"conversationId": "conv1",
		"receiverId":     "B",
	}))

	decodeData(t, recvEvent(t, receiver), &data)
	if data.IsTyping {
		t.Error("typing_stop relayed isTyping = true")
	}
}

func TestClient_MessageReadUnknownIdDoesNotDisconnect(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(st)

	client := newTestClient("B")
	client.hub = hub

	// Must log and carry on, nothing relayed
	client.handleEvent(inbound(t, models.EventMessageRead, map[string]string{
		"messageId":      "ghost",
		"conversationId": "conv1",
	}))
	assertNoEvent(t, client)
}

func TestClient_UnknownEventTypeIgnored(t *testing.T) {
	hub := newTestHub(newFakeStore())

	client := newTestClient("A")
	client.hub = hub

	client.handleEvent(inbound(t, "make_coffee", map[string]string{}))
	assertNoEvent(t, client)
}

func TestClient_RejectedJoinAfterDisconnectDoesNotPanic(t *testing.T) {
	st := newFakeStore()
	st.addConversation("conv1", "B", "C")
	hub := newTestHub(st)

	client := newTestClient("A")
	client.hub = hub
	hub.registerClient(client)

	// Disconnect teardown runs while a rejected join is still buffered
	// for dispatch; the error reply must be dropped, not panic on the
	// closed send channel
	client.cancel()
	hub.unregisterClient(client)

	client.handleEvent(inbound(t, models.EventJoinConversation, map[string]string{"conversationId": "conv1"}))

	if users := hub.registry.RoomUsers(ConversationRoom("conv1")); len(users) != 0 {
		t.Errorf("join after disconnect created membership: %v", users)
	}
}

func TestClient_MalformedPayloadIgnored(t *testing.T) {
	st := newFakeStore()
	st.addConversation("conv1", "A")
	hub := newTestHub(st)

	client := newTestClient("A")
	client.hub = hub

	client.handleEvent(inboundEvent{Type: models.EventJoinConversation, Data: json.RawMessage(`"not an object"`)})

	if users := hub.registry.RoomUsers(ConversationRoom("conv1")); len(users) != 0 {
		t.Errorf("malformed join created membership: %v", users)
	}
}
