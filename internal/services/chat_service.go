package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorlink/TutorAppBack/internal/audit"
	"github.com/tutorlink/TutorAppBack/internal/models"
	"github.com/tutorlink/TutorAppBack/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUserNotFound = errors.New("user not found")
	ErrOwnMessage   = errors.New("cannot mark own message as read")
)

const maxMessageLength = 2000

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
	audit            audit.Sink
}

// InitialMessage is the optional first message supplied with a conversation
// creation request. It only applies when the conversation does not exist yet.
type InitialMessage struct {
	Text    string
	Type    string
	FileURL *string
}

type ConversationResult struct {
	Conversation   *models.Conversation `json:"conversation"`
	Created        bool                 `json:"created"`
	InitialMessage *models.Message      `json:"initial_message,omitempty"`
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	auditSink audit.Sink,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		audit:            auditSink,
	}
}

// validateMessageInput trims and checks message content. Text messages need
// non-empty text; image and file messages need a file URL. The length limit
// counts characters, matching the char_length constraint on the table.
func validateMessageInput(text string, messageType string, fileURL *string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) > maxMessageLength {
		return "", ErrInvalidInput
	}

	switch messageType {
	case models.MessageTypeText:
		if trimmed == "" {
			return "", ErrInvalidInput
		}
	case models.MessageTypeImage, models.MessageTypeFile:
		if fileURL == nil || strings.TrimSpace(*fileURL) == "" {
			return "", ErrInvalidInput
		}
	default:
		return "", ErrInvalidInput
	}

	return trimmed, nil
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	page int,
	limit int,
) ([]models.ConversationSummary, int, error) {
	if actorID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	return s.conversationRepo.ListForParticipant(ctx, actorID, limit, (page-1)*limit)
}

// CreateConversation is idempotent on the unordered participant pair: a second
// request between the same two users returns the existing row with
// Created=false and the initial message, if any, is ignored.
func (s *ChatService) CreateConversation(
	ctx context.Context,
	actorID int64,
	otherUserID int64,
	initial *InitialMessage,
) (*ConversationResult, error) {
	if otherUserID <= 0 || otherUserID == actorID {
		return nil, ErrInvalidInput
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !other.IsActive {
		return nil, ErrUserNotFound
	}

	var trimmed string
	if initial != nil {
		trimmed, err = validateMessageInput(initial.Text, initial.Type, initial.FileURL)
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)
	txMessageRepo := repository.NewMessageRepository(tx)

	conversation, created, err := txConversationRepo.CreateOrGet(ctx, actorID, otherUserID)
	if err != nil {
		return nil, err
	}

	result := &ConversationResult{Conversation: conversation, Created: created}

	if created && initial != nil {
		message, err := txMessageRepo.Create(
			ctx,
			conversation.ID,
			actorID,
			conversation.OtherParticipant(actorID),
			trimmed,
			initial.Type,
			initial.FileURL,
		)
		if err != nil {
			return nil, err
		}
		if err := txConversationRepo.TouchLastMessage(ctx, conversation.ID, message.CreatedAt); err != nil {
			return nil, err
		}
		conversation.LastMessageAt = &message.CreatedAt
		result.InitialMessage = message
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.AccessDenied(actorID, "conversation", conversationID)
		}
		return nil, 0, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
}

// SendMessage persists one message and advances the conversation's
// last_message_at in a single transaction. Live delivery happens afterwards in
// the caller; persistence alone decides success.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	text string,
	messageType string,
	fileURL *string,
) (*models.Message, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed, err := validateMessageInput(text, messageType, fileURL)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.AccessDenied(actorID, "conversation", conversationID)
		}
		return nil, err
	}

	receiverID := conversation.OtherParticipant(actorID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, receiverID, trimmed, messageType, fileURL)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.TouchLastMessage(ctx, conversationID, message.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return message, nil
}

// MarkMessageRead transitions one message to read. Only the receiver may do
// this; the sender gets the message back unchanged with ErrOwnMessage. The
// changed flag tells callers whether a read receipt should go out.
func (s *ChatService) MarkMessageRead(
	ctx context.Context,
	actorID int64,
	messageID int64,
) (*models.Message, bool, error) {
	if messageID <= 0 {
		return nil, false, ErrInvalidInput
	}

	message, err := s.messageRepo.GetByIDForParticipant(ctx, messageID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.AccessDenied(actorID, "message", messageID)
		}
		return nil, false, err
	}

	if message.SenderID == actorID {
		return message, false, ErrOwnMessage
	}
	if message.IsRead {
		return message, false, nil
	}

	updated, err := s.messageRepo.MarkRead(ctx, messageID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another connection read it between load and update.
			message.IsRead = true
			return message, false, nil
		}
		return nil, false, err
	}

	return updated, true, nil
}

func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) (int64, error) {
	if conversationID <= 0 {
		return 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.AccessDenied(actorID, "conversation", conversationID)
		}
		return 0, err
	}

	return s.messageRepo.MarkConversationRead(ctx, conversationID, actorID)
}

// Typing validates that the actor belongs to the conversation and returns the
// other participant, the delivery target for the indicator. Nothing persists.
func (s *ChatService) Typing(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) (int64, error) {
	if conversationID <= 0 {
		return 0, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.audit.AccessDenied(actorID, "conversation", conversationID)
		}
		return 0, err
	}

	return conversation.OtherParticipant(actorID), nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
