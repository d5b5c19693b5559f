package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorlink/TutorAppBack/internal/audit"
	"github.com/tutorlink/TutorAppBack/internal/config"
	"github.com/tutorlink/TutorAppBack/internal/handlers"
	"github.com/tutorlink/TutorAppBack/internal/middleware"
	"github.com/tutorlink/TutorAppBack/internal/repository"
	"github.com/tutorlink/TutorAppBack/internal/services"
	chatws "github.com/tutorlink/TutorAppBack/internal/websocket"
)

// RegisterRoutes wires the messaging stack and returns the notifier other
// subsystems (bookings, reviews) use to push events to connected clients.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) *chatws.Notifier {
	auditSink := audit.NewLogSink()

	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatHub := chatws.NewHub()
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo, auditSink)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret, auditSink)
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret, auditSink), authHandler.Me)

	if cfg.DocsEnabled() {
		api.Get("/docs", docsHandler)
	}

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret, auditSink))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Put("/:id/read", chatHandler.MarkConversationRead)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return chatws.NewNotifier(chatHub)
}
