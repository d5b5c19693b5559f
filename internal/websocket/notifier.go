package chatws

import (
	"strconv"
	"time"

	"github.com/tutorlink/TutorAppBack/internal/services"
)

// Notifier is the push API the rest of the system (bookings, reviews) uses to
// reach connected clients without knowing anything about connection state.
// Delivery is best-effort: an offline target is a no-op, never an error.
type Notifier struct {
	hub *Hub
}

type notification struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// NotifyUser pushes an event to every live connection of one user.
func (n *Notifier) NotifyUser(userID int64, event string, data any) {
	payload := encodeEvent(notification{
		Type:      event,
		Data:      data,
		Timestamp: services.FormatChatTimestamp(time.Now()),
	})
	if payload == nil {
		return
	}
	n.hub.SendToUser(strconv.FormatInt(userID, 10), payload)
}

// NotifyRole pushes an event to every connected user of a role class.
func (n *Notifier) NotifyRole(role string, event string, data any) {
	payload := encodeEvent(notification{
		Type:      event,
		Data:      data,
		Timestamp: services.FormatChatTimestamp(time.Now()),
	})
	if payload == nil {
		return
	}
	n.hub.Broadcast(RoleRoom(role), payload)
}

// NotifySession pushes an event to every connection joined to a booking
// session room.
func (n *Notifier) NotifySession(sessionID int64, event string, data any) {
	payload := encodeEvent(notification{
		Type:      event,
		Data:      data,
		Timestamp: services.FormatChatTimestamp(time.Now()),
	})
	if payload == nil {
		return
	}
	n.hub.Broadcast(SessionRoom(strconv.FormatInt(sessionID, 10)), payload)
}
