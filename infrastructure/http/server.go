// Package http exposes the dashboard's messaging API and the realtime
// socket endpoint over Fiber.
package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"cms-messaging/auth"
	"cms-messaging/contract"
	"cms-messaging/repositories"
	"cms-messaging/services"
)

type Server struct {
	app *fiber.App
	log *slog.Logger
}

func NewServer(
	log *slog.Logger,
	tokens auth.TokenIssuer,
	authService services.IAuthService,
	messageService services.IMessageService,
	registry contract.IRegistry,
	conversations repositories.IConversationRepository,
	wsBufferSize int,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "cms-messaging",
		DisableStartupMessage: true,
	})

	authHandlers := NewAuthHandlers(log, authService)
	messageHandlers := NewMessageHandlers(log, messageService)
	presenceHandlers := NewPresenceHandlers(registry)
	wsHandler := NewWSHandler(log, tokens, registry, conversations, wsBufferSize)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "ts": time.Now().UnixMilli()})
	})
	api.Post("/auth/register", authHandlers.Register)
	api.Post("/auth/login", authHandlers.Login)

	protect := Protect(tokens)
	messages := api.Group("/messages", protect)
	messages.Get("/conversations", messageHandlers.ListConversations)
	messages.Post("/conversations", messageHandlers.CreateConversation)
	messages.Get("/conversations/:id/messages", messageHandlers.ListMessages)
	messages.Post("/conversations/:id/messages", messageHandlers.SendMessage)
	messages.Post("/conversations/:id/read", messageHandlers.MarkConversationRead)
	messages.Post("/messages/:messageId/read", messageHandlers.MarkMessageRead)

	api.Get("/presence/:userId", protect, presenceHandlers.Presence)

	app.Get("/ws", websocket.New(wsHandler.Handle))

	return &Server{app: app, log: log}
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.log.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
