package models

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// Conversation is the single thread between two users. The participant pair is
// stored normalized (ParticipantA < ParticipantB) so the unordered pair maps to
// exactly one row.
type Conversation struct {
	ID            int64      `json:"id"`
	ParticipantA  int64      `json:"participant_a"`
	ParticipantB  int64      `json:"participant_b"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OtherParticipant returns the participant that is not userID. Callers must
// have checked membership first.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	ReceiverID     int64      `json:"receiver_id"`
	Text           string     `json:"text"`
	Type           string     `json:"type"`
	FileURL        *string    `json:"file_url,omitempty"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	OtherUser   *PublicProfile `json:"other_user,omitempty"`
	LastMessage *Message       `json:"last_message,omitempty"`
	UnreadCount int            `json:"unread_count"`
	Online      bool           `json:"online"`
}
