package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"cms-messaging/auth"
	"cms-messaging/contract"
	"cms-messaging/domain"
	"cms-messaging/repositories"
	"cms-messaging/sink"
)

// Client frames on the realtime socket.
const (
	frameJoin  = "conversation:join"
	frameLeave = "conversation:leave"
)

type clientFrame struct {
	Event        string `json:"event"`
	Conversation string `json:"conversation"`
}

// serverFrame is the envelope every fanned-out event is written in.
type serverFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSHandler serves one realtime connection per client session.
// Authentication is optimistic: a missing or invalid token degrades the
// connection to anonymous instead of rejecting the socket. Anonymous
// connections never register presence and their join frames no-op.
type WSHandler struct {
	log           *slog.Logger
	tokens        auth.TokenIssuer
	registry      contract.IRegistry
	conversations repositories.IConversationRepository
	bufferSize    int
}

func NewWSHandler(
	log *slog.Logger,
	tokens auth.TokenIssuer,
	registry contract.IRegistry,
	conversations repositories.IConversationRepository,
	bufferSize int,
) *WSHandler {
	return &WSHandler{
		log:           log,
		tokens:        tokens,
		registry:      registry,
		conversations: conversations,
		bufferSize:    bufferSize,
	}
}

// Handle GET /ws?token=...
// Blocks until the client disconnects. Cleanup runs via deferred
// unregistration so the registry never leaks a dead connection.
func (h *WSHandler) Handle(c *websocket.Conn) {
	var principal *domain.Principal
	if token := c.Query("token"); token != "" {
		if p, err := h.tokens.Verify(token); err == nil {
			principal = &p
		} else {
			h.log.Debug("Socket token rejected, continuing anonymous", "error", err)
		}
	}

	connID := uuid.NewString()
	connSink := sink.NewConnectionSink(h.bufferSize)

	if principal != nil {
		h.registry.RegisterConnection(principal.ID, connID, connSink)
		defer h.registry.UnregisterConnection(principal.ID, connID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.writePump(ctx, c, connSink)

	h.readPump(c, connID, principal)
}

// readPump processes join/leave frames until the socket closes.
func (h *WSHandler) readPump(c *websocket.Conn, connID string, principal *domain.Principal) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case frameJoin:
			// Joining a conversation channel is identity-bound and
			// membership-gated; anything else silently no-ops.
			if principal == nil || frame.Conversation == "" {
				continue
			}
			convo, err := h.conversations.Get(frame.Conversation)
			if err != nil || !convo.IsMember(principal.ID) {
				h.log.Debug(fmt.Sprintf("Join refused for %s on %s", principal.ID, frame.Conversation))
				continue
			}
			h.registry.JoinConversation(connID, frame.Conversation)
		case frameLeave:
			h.registry.LeaveConversation(connID, frame.Conversation)
		}
	}
}

// writePump is the connection's single writer: it drains the sink and
// pushes event envelopes on the wire until the connection goes away.
func (h *WSHandler) writePump(ctx context.Context, c *websocket.Conn, connSink *sink.ConnectionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-connSink.Events:
			if err := c.WriteJSON(serverFrame{Event: evt.Name(), Data: evt}); err != nil {
				h.log.Debug("Failed to push event to socket", "event", evt.Name(), "error", err)
				return
			}
		}
	}
}
