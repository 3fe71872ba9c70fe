package http

import (
	"github.com/gofiber/fiber/v2"

	"cms-messaging/contract"
)

type PresenceHandlers struct {
	registry contract.IRegistry
}

func NewPresenceHandlers(registry contract.IRegistry) *PresenceHandlers {
	return &PresenceHandlers{registry: registry}
}

// Presence GET /api/presence/:userId
// Online means at least one live realtime connection right now; this is
// process-local state, rebuilt empty on restart.
func (h *PresenceHandlers) Presence(c *fiber.Ctx) error {
	userID := c.Params("userId")
	return c.JSON(fiber.Map{"userId": userID, "online": h.registry.IsOnline(userID)})
}
