package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/tutorlink/TutorAppBack/internal/models"
	"github.com/tutorlink/TutorAppBack/internal/services"
)

// SocketService is the slice of the protocol engine the websocket layer needs.
type SocketService interface {
	SendMessage(ctx context.Context, actorID int64, conversationID int64, text string, messageType string, fileURL *string) (*models.Message, error)
	MarkMessageRead(ctx context.Context, actorID int64, messageID int64) (*models.Message, bool, error)
	Typing(ctx context.Context, actorID int64, conversationID int64) (int64, error)
}

// SendConnected pushes the post-handshake acknowledgement to this client.
func (c *Client) SendConnected() {
	payload := encodeEvent(connectedEvent{
		Type:      EventConnected,
		UserID:    c.userID,
		UserType:  c.role,
		Timestamp: services.FormatChatTimestamp(time.Now()),
	})
	if payload == nil {
		return
	}
	c.trySend(payload)
}

// ReadPump consumes inbound events until the connection drops. Store calls run
// outside any hub lock; the hub is only touched for in-memory delivery after
// persistence has succeeded.
func (c *Client) ReadPump(service SocketService) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	actorID, err := strconv.ParseInt(c.userID, 10, 64)
	if err != nil {
		c.writeError("", "invalid user")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.writeError("", "invalid event payload")
			continue
		}

		c.dispatch(service, actorID, &event)
	}
}

func (c *Client) dispatch(service SocketService, actorID int64, event *inboundEvent) {
	ctx := context.Background()

	switch event.Type {
	case EventSendMessage:
		messageType := event.MessageType
		if messageType == "" {
			messageType = models.MessageTypeText
		}
		message, err := service.SendMessage(ctx, actorID, event.ConversationID, event.Text, messageType, event.FileURL)
		if err != nil {
			c.writeError(event.Type, chatErrorMessage(err))
			return
		}
		c.hub.NotifyMessageSent(message)
		c.hub.NotifyNewMessage(message)

	case EventMarkMessageRead:
		message, changed, err := service.MarkMessageRead(ctx, actorID, event.MessageID)
		if err != nil {
			c.writeError(event.Type, chatErrorMessage(err))
			return
		}
		if changed {
			c.hub.NotifyMessageRead(message)
		}

	case EventTypingStart, EventTypingStop:
		receiverID, err := service.Typing(ctx, actorID, event.ConversationID)
		if err != nil {
			c.writeError(event.Type, chatErrorMessage(err))
			return
		}
		c.hub.NotifyTyping(receiverID, event.ConversationID, actorID, event.Type == EventTypingStart)

	case EventJoinSession:
		if event.SessionID <= 0 {
			c.writeError(event.Type, "invalid session id")
			return
		}
		c.hub.JoinRoom(c, SessionRoom(strconv.FormatInt(event.SessionID, 10)))

	case EventLeaveSession:
		if event.SessionID <= 0 {
			c.writeError(event.Type, "invalid session id")
			return
		}
		c.hub.LeaveRoom(c, SessionRoom(strconv.FormatInt(event.SessionID, 10)))

	default:
		c.writeError(event.Type, "unsupported event type")
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(event string, message string) {
	payload := encodeEvent(errorEvent{
		Type:    EventError,
		Event:   event,
		Message: message,
	})
	if payload == nil {
		return
	}
	if !c.trySend(payload) {
		c.hub.Unregister(c)
	}
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid message"
	case errors.Is(err, services.ErrOwnMessage):
		return "cannot mark own message as read"
	case errors.Is(err, pgx.ErrNoRows):
		return "conversation not found"
	default:
		return "failed to process event"
	}
}
