package chatws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/tutorlink/TutorAppBack/internal/models"
	"github.com/tutorlink/TutorAppBack/internal/services"
)

// Inbound event types (client to server).
const (
	EventSendMessage     = "send_message"
	EventMarkMessageRead = "mark_message_read"
	EventTypingStart     = "typing_start"
	EventTypingStop      = "typing_stop"
	EventJoinSession     = "join_session"
	EventLeaveSession    = "leave_session"
)

// Outbound event types (server to client).
const (
	EventConnected       = "connected"
	EventMessageSent     = "message_sent"
	EventNewMessage      = "new_message"
	EventMessageRead     = "message_read"
	EventTypingIndicator = "typing_indicator"
	EventError           = "error"
)

type inboundEvent struct {
	Type           string  `json:"type"`
	ConversationID int64   `json:"conversation_id"`
	MessageID      int64   `json:"message_id"`
	SessionID      int64   `json:"session_id"`
	Text           string  `json:"text"`
	MessageType    string  `json:"message_type"`
	FileURL        *string `json:"file_url"`
}

type connectedEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type"`
	Timestamp string `json:"timestamp"`
}

type messageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type messageReadEvent struct {
	Type           string `json:"type"`
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id"`
	ReadAt         string `json:"read_at"`
}

type typingEvent struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
	Timestamp      string `json:"timestamp"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

func encodeEvent(event any) []byte {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return nil
	}
	return payload
}

// NotifyMessageSent confirms persistence to every connection of the sender.
func (h *Hub) NotifyMessageSent(message *models.Message) {
	payload := encodeEvent(messageEvent{Type: EventMessageSent, Message: message})
	if payload == nil {
		return
	}
	h.SendToUser(strconv.FormatInt(message.SenderID, 10), payload)
}

// NotifyNewMessage delivers the message to every connection of the receiver.
func (h *Hub) NotifyNewMessage(message *models.Message) {
	payload := encodeEvent(messageEvent{Type: EventNewMessage, Message: message})
	if payload == nil {
		return
	}
	h.SendToUser(strconv.FormatInt(message.ReceiverID, 10), payload)
}

// NotifyMessageRead sends the read receipt to the original sender only; the
// reader already knows.
func (h *Hub) NotifyMessageRead(message *models.Message) {
	readAt := time.Now().UTC()
	if message.ReadAt != nil {
		readAt = *message.ReadAt
	}
	payload := encodeEvent(messageReadEvent{
		Type:           EventMessageRead,
		MessageID:      message.ID,
		ConversationID: message.ConversationID,
		ReadAt:         services.FormatChatTimestamp(readAt),
	})
	if payload == nil {
		return
	}
	h.SendToUser(strconv.FormatInt(message.SenderID, 10), payload)
}

// NotifyTyping forwards a typing indicator to the other participant. Not
// persisted anywhere.
func (h *Hub) NotifyTyping(receiverID int64, conversationID int64, typistID int64, isTyping bool) {
	payload := encodeEvent(typingEvent{
		Type:           EventTypingIndicator,
		ConversationID: conversationID,
		UserID:         typistID,
		IsTyping:       isTyping,
		Timestamp:      services.FormatChatTimestamp(time.Now()),
	})
	if payload == nil {
		return
	}
	h.SendToUser(strconv.FormatInt(receiverID, 10), payload)
}
