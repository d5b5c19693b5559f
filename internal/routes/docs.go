package routes

import "github.com/gofiber/fiber/v2"

type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// docsHandler serves a JSON index of the messaging API. Registered only when
// docs are enabled in a development environment.
func docsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name": "TutorAppBack messaging API",
		"endpoints": []endpointDoc{
			{Method: "POST", Path: "/api/auth/register", Description: "Create a student or tutor account"},
			{Method: "POST", Path: "/api/auth/login", Description: "Exchange credentials for a bearer token"},
			{Method: "GET", Path: "/api/auth/me", Description: "Current authenticated user"},
			{Method: "GET", Path: "/api/v1/conversations", Description: "Paginated conversation summaries, most recent first"},
			{Method: "POST", Path: "/api/v1/conversations", Description: "Create or fetch the conversation with another user"},
			{Method: "GET", Path: "/api/v1/conversations/:id/messages", Description: "Paginated message history, oldest first"},
			{Method: "POST", Path: "/api/v1/conversations/:id/messages", Description: "Send a message without a websocket"},
			{Method: "PUT", Path: "/api/v1/conversations/:id/read", Description: "Mark all received messages in the conversation read"},
			{Method: "GET", Path: "/api/v1/ws", Description: "WebSocket endpoint; token via ?token= or Authorization header"},
		},
	})
}
