package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tutorlink/TutorAppBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// normalizePair orders two participant ids so the unordered pair always maps
// to the same (participant_a, participant_b) row.
func normalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// CreateOrGet inserts the conversation for the unordered pair or returns the
// existing one. The (xmax = 0) column reports whether the row was inserted by
// this statement, which is how callers learn created-vs-existing even when two
// creation requests race.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userA int64,
	userB int64,
) (*models.Conversation, bool, error) {
	first, second := normalizePair(userA, userB)

	query := `
		INSERT INTO conversations (participant_a, participant_b)
		VALUES ($1, $2)
		ON CONFLICT (participant_a, participant_b)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, participant_a, participant_b, last_message_at, created_at, updated_at, (xmax = 0)
	`

	var conversation models.Conversation
	var created bool
	err := r.db.QueryRow(ctx, query, first, second).Scan(
		&conversation.ID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, err
	}

	return &conversation, created, nil
}

// GetByIDForParticipant returns the conversation only when participantID is one
// of its two members; otherwise pgx.ErrNoRows, so a non-participant cannot tell
// an inaccessible conversation from a missing one.
func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, last_message_at, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND (participant_a = $2 OR participant_b = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(
		&conversation.ID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
	limit int,
	offset int,
) ([]models.ConversationSummary, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, participantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			c.id,
			c.participant_a,
			c.participant_b,
			c.last_message_at,
			c.created_at,
			c.updated_at,
			u.id,
			u.full_name,
			u.avatar_url,
			u.role,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.receiver_id,
			lm.text,
			lm.type,
			lm.file_url,
			lm.is_read,
			lm.read_at,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, receiver_id, text, type, file_url, is_read, read_at, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND receiver_id = $1
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, participantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var other models.PublicProfile
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageReceiverID sql.NullInt64
		var messageText sql.NullString
		var messageType sql.NullString
		var messageFileURL sql.NullString
		var messageIsRead sql.NullBool
		var messageReadAt sql.NullTime
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.ParticipantA,
			&summary.ParticipantB,
			&summary.LastMessageAt,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&other.ID,
			&other.FullName,
			&other.AvatarURL,
			&other.Role,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageReceiverID,
			&messageText,
			&messageType,
			&messageFileURL,
			&messageIsRead,
			&messageReadAt,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, 0, err
		}

		summary.OtherUser = &other
		if messageID.Valid {
			last := &models.Message{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderID:       messageSenderID.Int64,
				ReceiverID:     messageReceiverID.Int64,
				Text:           messageText.String,
				Type:           messageType.String,
				IsRead:         messageIsRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageFileURL.Valid {
				last.FileURL = &messageFileURL.String
			}
			if messageReadAt.Valid {
				readAt := messageReadAt.Time
				last.ReadAt = &readAt
			}
			summary.LastMessage = last
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

// TouchLastMessage advances last_message_at to messageCreatedAt unless a later
// message already did. Two racing sends may run their insert+touch sequences in
// either order; the timestamp guard keeps last_message_at at the newest
// created_at instead of whichever touch committed last.
func (r *ConversationRepository) TouchLastMessage(
	ctx context.Context,
	conversationID int64,
	messageCreatedAt time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = $2, updated_at = NOW()
		WHERE id = $1
		  AND (last_message_at IS NULL OR last_message_at <= $2)
	`, conversationID, messageCreatedAt)
	return err
}
