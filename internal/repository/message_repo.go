package repository

import (
	"context"

	"github.com/tutorlink/TutorAppBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	receiverID int64,
	text string,
	messageType string,
	fileURL *string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, text, type, file_url, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, conversation_id, sender_id, receiver_id, text, type, file_url, is_read, read_at, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, conversationID, senderID, receiverID, text, messageType, fileURL).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.Type,
		&message.FileURL,
		&message.IsRead,
		&message.ReadAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// GetByIDForParticipant loads a message only when participantID is a member of
// its conversation; otherwise pgx.ErrNoRows.
func (r *MessageRepository) GetByIDForParticipant(
	ctx context.Context,
	messageID int64,
	participantID int64,
) (*models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.text, m.type, m.file_url, m.is_read, m.read_at, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.id = $1 AND (c.participant_a = $2 OR c.participant_b = $2)
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, messageID, participantID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.Type,
		&message.FileURL,
		&message.IsRead,
		&message.ReadAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns one ascending page of the conversation's history.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, conversation_id, sender_id, receiver_id, text, type, file_url, is_read, read_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Text,
			&message.Type,
			&message.FileURL,
			&message.IsRead,
			&message.ReadAt,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkRead transitions one unread message to read for its receiver and returns
// the updated row; pgx.ErrNoRows means it was already read or readerID is not
// the receiver.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	messageID int64,
	readerID int64,
) (*models.Message, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1
		  AND receiver_id = $2
		  AND is_read = FALSE
		RETURNING id, conversation_id, sender_id, receiver_id, text, type, file_url, is_read, read_at, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, messageID, readerID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Text,
		&message.Type,
		&message.FileURL,
		&message.IsRead,
		&message.ReadAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// MarkConversationRead bulk-reads every unread message addressed to readerID
// and reports how many rows changed. Zero is a normal outcome.
func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID int64,
	readerID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE, read_at = NOW()
		WHERE conversation_id = $1
		  AND receiver_id = $2
		  AND is_read = FALSE
	`, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
