package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tutorlink/TutorAppBack/internal/audit"
	"github.com/tutorlink/TutorAppBack/internal/models"
	"github.com/tutorlink/TutorAppBack/internal/services"
	chatws "github.com/tutorlink/TutorAppBack/internal/websocket"
	"github.com/tutorlink/TutorAppBack/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actorID int64, page int, limit int) ([]models.ConversationSummary, int, error)
	CreateConversation(ctx context.Context, actorID int64, otherUserID int64, initial *services.InitialMessage) (*services.ConversationResult, error)
	ListMessages(ctx context.Context, actorID int64, conversationID int64, page int, limit int) ([]models.Message, int, error)
	SendMessage(ctx context.Context, actorID int64, conversationID int64, text string, messageType string, fileURL *string) (*models.Message, error)
	MarkMessageRead(ctx context.Context, actorID int64, messageID int64) (*models.Message, bool, error)
	MarkConversationRead(ctx context.Context, actorID int64, conversationID int64) (int64, error)
	Typing(ctx context.Context, actorID int64, conversationID int64) (int64, error)
}

// liveDelivery is the slice of the hub the REST handlers use: best-effort
// fan-out after persistence and presence lookups for list enrichment.
type liveDelivery interface {
	NotifyMessageSent(message *models.Message)
	NotifyNewMessage(message *models.Message)
	IsOnline(userID string) bool
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	live      liveDelivery
	jwtSecret string
	audit     audit.Sink
}

type initialMessageRequest struct {
	Text    string  `json:"text"`
	Type    string  `json:"type"`
	FileURL *string `json:"file_url"`
}

type createConversationRequest struct {
	OtherUserID    int64                  `json:"other_user_id"`
	InitialMessage *initialMessageRequest `json:"initial_message"`
}

type sendMessageRequest struct {
	Text    string  `json:"text"`
	Type    string  `json:"type"`
	FileURL *string `json:"file_url"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string, auditSink audit.Sink) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		live:      hub,
		jwtSecret: jwtSecret,
		audit:     auditSink,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := requireActor(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	conversations, total, err := h.service.ListConversations(c.Context(), userID, page, limit)
	if err != nil {
		return h.mapChatError(c, err)
	}

	for i := range conversations {
		if other := conversations[i].OtherUser; other != nil {
			conversations[i].Online = h.live.IsOnline(strconv.FormatInt(other.ID, 10))
		}
	}

	return respondPage(c, conversations, buildPaginationMeta(page, limit, total))
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := requireActor(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var initial *services.InitialMessage
	if req.InitialMessage != nil {
		messageType := req.InitialMessage.Type
		if messageType == "" {
			messageType = models.MessageTypeText
		}
		initial = &services.InitialMessage{
			Text:    req.InitialMessage.Text,
			Type:    messageType,
			FileURL: req.InitialMessage.FileURL,
		}
	}

	result, err := h.service.CreateConversation(c.Context(), userID, req.OtherUserID, initial)
	if err != nil {
		return h.mapChatError(c, err)
	}

	// The initial message goes out like any other send: confirmation to the
	// sender's connections, delivery to the receiver's.
	if result.InitialMessage != nil {
		h.live.NotifyMessageSent(result.InitialMessage)
		h.live.NotifyNewMessage(result.InitialMessage)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return respondData(c, status, result)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := requireActor(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return respondError(c, fiber.StatusBadRequest, "Invalid conversation id")
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), userID, conversationID, page, limit)
	if err != nil {
		return h.mapChatError(c, err)
	}

	return respondPage(c, messages, buildPaginationMeta(page, limit, total))
}

// SendMessage is the non-realtime fallback. Persistence decides success; live
// delivery afterwards is best-effort exactly as on the websocket path.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := requireActor(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return respondError(c, fiber.StatusBadRequest, "Invalid conversation id")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}

	message, err := h.service.SendMessage(c.Context(), userID, conversationID, req.Text, req.Type, req.FileURL)
	if err != nil {
		return h.mapChatError(c, err)
	}

	h.live.NotifyMessageSent(message)
	h.live.NotifyNewMessage(message)

	return respondData(c, fiber.StatusCreated, message)
}

func (h *ChatHandler) MarkConversationRead(c *fiber.Ctx) error {
	userID, err := requireActor(c)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token")
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return respondError(c, fiber.StatusBadRequest, "Invalid conversation id")
	}

	count, err := h.service.MarkConversationRead(c.Context(), userID, conversationID)
	if err != nil {
		return h.mapChatError(c, err)
	}

	return respondData(c, fiber.StatusOK, fiber.Map{"marked_read": count})
}

// WebSocketAuth validates the bearer credential before the upgrade completes,
// so an unauthenticated socket never reaches the registry.
func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return respondError(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		h.audit.AuthFailure(c.IP(), "websocket: "+err.Error())
		return respondError(c, fiber.StatusUnauthorized, "AUTH_REQUIRED")
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := chatws.NewClient(h.hub, conn, userID, role)

	h.hub.Register(client)
	client.SendConnected()
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func requireActor(c *fiber.Ctx) (int64, error) {
	raw, _ := c.Locals("user_id").(string)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("invalid user id")
	}
	return userID, nil
}

func (h *ChatHandler) mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return respondError(c, fiber.StatusBadRequest, "Invalid request")
	case errors.Is(err, services.ErrOwnMessage):
		return respondError(c, fiber.StatusBadRequest, "Cannot mark own message as read")
	case errors.Is(err, services.ErrUserNotFound):
		return respondError(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, pgx.ErrNoRows):
		return respondError(c, fiber.StatusNotFound, "Conversation not found")
	default:
		return respondError(c, fiber.StatusInternalServerError, "Failed to process chat request")
	}
}
