package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"cms-messaging/auth"
	"cms-messaging/services"
)

type AuthHandlers struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewAuthHandlers(log *slog.Logger, authService services.IAuthService) *AuthHandlers {
	return &AuthHandlers{log: log, auth: authService}
}

// Register POST /api/auth/register
func (h *AuthHandlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	id, err := h.auth.Register(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Login POST /api/auth/login
func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	token, user, err := h.auth.Login(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}
