package chatws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tutorlink/TutorAppBack/internal/models"
)

func receivePayload(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return payload
	default:
		t.Fatal("expected a payload, send channel empty")
	}
	return nil
}

func assertNoPayload(t *testing.T, client *Client) {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		if ok {
			t.Fatalf("unexpected payload: %s", payload)
		}
	default:
	}
}

func TestRegisterJoinsPersonalAndRoleRooms(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "42", "tutor")
	hub.Register(client)

	hub.Broadcast(PersonalRoom("42"), []byte("personal"))
	if got := receivePayload(t, client); string(got) != "personal" {
		t.Fatalf("expected personal delivery, got %s", got)
	}

	hub.Broadcast(RoleRoom("tutor"), []byte("announcement"))
	if got := receivePayload(t, client); string(got) != "announcement" {
		t.Fatalf("expected role delivery, got %s", got)
	}

	hub.Broadcast(RoleRoom("student"), []byte("other role"))
	assertNoPayload(t, client)

	if !hub.IsOnline("42") {
		t.Fatal("expected user 42 online")
	}
}

func TestSecondConnectionStillReceivesPersonalDeliveries(t *testing.T) {
	hub := NewHub()
	first := NewClient(hub, nil, "7", "student")
	second := NewClient(hub, nil, "7", "student")
	hub.Register(first)
	hub.Register(second)

	hub.SendToUser("7", []byte("hello"))
	if got := receivePayload(t, first); string(got) != "hello" {
		t.Fatalf("first tab missed delivery: %s", got)
	}
	if got := receivePayload(t, second); string(got) != "hello" {
		t.Fatalf("second tab missed delivery: %s", got)
	}

	// The presence slot is last-writer-wins. Dropping its holder clears it
	// even though the first connection is still live; delivery is unaffected.
	hub.Unregister(second)
	if hub.IsOnline("7") {
		t.Fatal("expected presence slot released with its holder")
	}

	hub.SendToUser("7", []byte("again"))
	if got := receivePayload(t, first); string(got) != "again" {
		t.Fatalf("first tab missed delivery after slot release: %s", got)
	}
}

func TestSessionRoomJoinAndLeave(t *testing.T) {
	hub := NewHub()
	tutor := NewClient(hub, nil, "1", "tutor")
	student := NewClient(hub, nil, "2", "student")
	hub.Register(tutor)
	hub.Register(student)

	room := SessionRoom("55")
	hub.JoinRoom(tutor, room)
	hub.JoinRoom(student, room)

	hub.Broadcast(room, []byte("session event"))
	receivePayload(t, tutor)
	receivePayload(t, student)

	hub.LeaveRoom(student, room)
	hub.Broadcast(room, []byte("after leave"))
	receivePayload(t, tutor)
	assertNoPayload(t, student)
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "9", "tutor")
	hub.Register(client)
	hub.JoinRoom(client, SessionRoom("3"))

	hub.Unregister(client)

	if hub.IsOnline("9") {
		t.Fatal("expected user offline after unregister")
	}

	// Deliveries to empty rooms are silent no-ops.
	hub.Broadcast(PersonalRoom("9"), []byte("x"))
	hub.Broadcast(SessionRoom("3"), []byte("x"))
	hub.Broadcast(RoleRoom("tutor"), []byte("x"))

	// Unregister twice must be safe.
	hub.Unregister(client)
}

func TestSlowConsumerDropToleratesConcurrentWrites(t *testing.T) {
	hub := NewHub()
	slow := NewClient(hub, nil, "1", "student")
	hub.Register(slow)

	// Fill the send buffer without draining it, then one more delivery
	// marks the client stale and removes it.
	for i := 0; i < cap(slow.send); i++ {
		hub.SendToUser("1", []byte("backlog"))
	}
	hub.SendToUser("1", []byte("overflow"))

	if hub.IsOnline("1") {
		t.Fatal("expected slow client to be dropped")
	}

	// Writes racing the removal must be rejected, never panic on a closed
	// channel.
	slow.SendConnected()
	slow.writeError(EventSendMessage, "late failure")
	if slow.trySend([]byte("late")) {
		t.Fatal("expected sends after drop to be rejected")
	}
	hub.Unregister(slow)

	// The write pump still drains the backlog, then sees the close.
	for i := 0; i < cap(slow.send); i++ {
		if got := receivePayload(t, slow); string(got) != "backlog" {
			t.Fatalf("unexpected backlog payload: %s", got)
		}
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("expected send channel closed after drop")
	}
}

func TestJoinRoomIgnoresUnregisteredClient(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil, "4", "student")

	hub.JoinRoom(client, SessionRoom("8"))
	hub.Broadcast(SessionRoom("8"), []byte("x"))
	assertNoPayload(t, client)
}

func TestNotifyMessageRouting(t *testing.T) {
	hub := NewHub()
	sender := NewClient(hub, nil, "1", "student")
	receiver := NewClient(hub, nil, "2", "tutor")
	hub.Register(sender)
	hub.Register(receiver)

	message := &models.Message{
		ID:             10,
		ConversationID: 5,
		SenderID:       1,
		ReceiverID:     2,
		Text:           "Hi",
		Type:           models.MessageTypeText,
		CreatedAt:      time.Now().UTC(),
	}

	hub.NotifyMessageSent(message)
	var sent messageEvent
	if err := json.Unmarshal(receivePayload(t, sender), &sent); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if sent.Type != EventMessageSent || sent.Message.ID != 10 {
		t.Fatalf("unexpected confirmation: %+v", sent)
	}
	assertNoPayload(t, receiver)

	hub.NotifyNewMessage(message)
	var delivered messageEvent
	if err := json.Unmarshal(receivePayload(t, receiver), &delivered); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if delivered.Type != EventNewMessage || delivered.Message.Text != "Hi" {
		t.Fatalf("unexpected delivery: %+v", delivered)
	}
	assertNoPayload(t, sender)

	readAt := time.Now().UTC()
	message.IsRead = true
	message.ReadAt = &readAt
	hub.NotifyMessageRead(message)
	var receipt messageReadEvent
	if err := json.Unmarshal(receivePayload(t, sender), &receipt); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if receipt.Type != EventMessageRead || receipt.MessageID != 10 || receipt.ConversationID != 5 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	// The reader must not get their own receipt.
	assertNoPayload(t, receiver)
}

func TestNotifyTypingTargetsOtherParticipant(t *testing.T) {
	hub := NewHub()
	typist := NewClient(hub, nil, "1", "student")
	other := NewClient(hub, nil, "2", "tutor")
	hub.Register(typist)
	hub.Register(other)

	hub.NotifyTyping(2, 5, 1, true)

	var event typingEvent
	if err := json.Unmarshal(receivePayload(t, other), &event); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if event.Type != EventTypingIndicator || event.UserID != 1 || !event.IsTyping || event.ConversationID != 5 {
		t.Fatalf("unexpected typing event: %+v", event)
	}
	assertNoPayload(t, typist)
}

func TestNotifierAddressing(t *testing.T) {
	hub := NewHub()
	tutor := NewClient(hub, nil, "1", "tutor")
	student := NewClient(hub, nil, "2", "student")
	hub.Register(tutor)
	hub.Register(student)
	hub.JoinRoom(student, SessionRoom("77"))

	notifier := NewNotifier(hub)

	notifier.NotifyUser(1, "booking_confirmed", map[string]any{"session_id": 77})
	var toUser notification
	if err := json.Unmarshal(receivePayload(t, tutor), &toUser); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if toUser.Type != "booking_confirmed" {
		t.Fatalf("unexpected event: %+v", toUser)
	}
	assertNoPayload(t, student)

	notifier.NotifyRole("tutor", "policy_update", nil)
	receivePayload(t, tutor)
	assertNoPayload(t, student)

	notifier.NotifySession(77, "session_started", nil)
	receivePayload(t, student)
	assertNoPayload(t, tutor)
}
