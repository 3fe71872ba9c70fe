package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"cms-messaging/domain"
	"cms-messaging/services"
)

type MessageHandlers struct {
	log      *slog.Logger
	messages services.IMessageService
}

func NewMessageHandlers(log *slog.Logger, messages services.IMessageService) *MessageHandlers {
	return &MessageHandlers{log: log, messages: messages}
}

type createConversationRequest struct {
	Participants []string `json:"participants"`
	Title        string   `json:"title"`
	IsGroup      bool     `json:"isGroup"`
}

type sendMessageRequest struct {
	Text string   `json:"text"`
	To   []string `json:"to"`
}

type messageResponse struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"`
	From         string    `json:"from"`
	To           []string  `json:"to,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
	DeliveredTo  []string  `json:"deliveredTo"`
	ReadBy       []string  `json:"readBy"`
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:           m.ID,
		Conversation: m.ConversationID,
		From:         m.From,
		To:           m.To,
		Text:         m.Text,
		CreatedAt:    m.CreatedAt,
		DeliveredTo:  m.DeliveredTo,
		ReadBy:       m.ReadBy,
	}
}

// ListConversations GET /api/messages/conversations
func (h *MessageHandlers) ListConversations(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	previews, err := h.messages.ListConversations(principal.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(previews)
}

// CreateConversation POST /api/messages/conversations
func (h *MessageHandlers) CreateConversation(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	convo, err := h.messages.CreateConversation(principal.ID, req.Participants, req.Title, req.IsGroup)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(convo)
}

// ListMessages GET /api/messages/conversations/:id/messages
// Viewing delivers: the requesting principal is recorded in deliveredTo
// on every message of the conversation they had not received yet.
func (h *MessageHandlers) ListMessages(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	messages, err := h.messages.ListMessages(principal.ID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return toMessageResponse(m)
	}))
}

// SendMessage POST /api/messages/conversations/:id/messages
func (h *MessageHandlers) SendMessage(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	message, err := h.messages.SendMessage(c.Context(), principal.ID, c.Params("id"), req.Text, req.To)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toMessageResponse(message))
}

// MarkConversationRead POST /api/messages/conversations/:id/read
func (h *MessageHandlers) MarkConversationRead(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	modified, err := h.messages.MarkConversationRead(principal.ID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true, "modified": modified})
}

// MarkMessageRead POST /api/messages/messages/:messageId/read
func (h *MessageHandlers) MarkMessageRead(c *fiber.Ctx) error {
	principal := PrincipalFrom(c)
	if err := h.messages.MarkMessageRead(principal.ID, c.Params("messageId")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
