package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tutorlink/TutorAppBack/internal/models"
)

// apiResponse is the uniform envelope every endpoint returns.
type apiResponse struct {
	Success    bool                   `json:"success"`
	Data       any                    `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Pagination *models.PaginationMeta `json:"pagination,omitempty"`
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(apiResponse{Success: true, Data: data})
}

func respondPage(c *fiber.Ctx, data any, meta models.PaginationMeta) error {
	return c.JSON(apiResponse{Success: true, Data: data, Pagination: &meta})
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(apiResponse{Success: false, Message: message})
}
