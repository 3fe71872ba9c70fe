// Package event defines the realtime event taxonomy of the messaging core.
// Events are published strictly after a successful persistence mutation
// and delivered best-effort: they are never the source of truth.
package event

import (
	"time"
)

// Wire event names, kept identical to the socket protocol of the
// dashboard frontend.
const (
	MessageNewName       = "message:new"
	MessageDeliveredName = "message:delivered"
	MessageReadName      = "message:read"
	PresenceUpdateName   = "presence:update"
)

// DomainEvent is anything the fanout can broadcast.
// ConversationID scopes delivery to the participants joined to that
// conversation; an empty scope means process-wide broadcast (presence).
type DomainEvent interface {
	Name() string
	ConversationID() string
}

// MessageNew announces a freshly persisted message.
type MessageNew struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"`
	From         string    `json:"from"`
	To           []string  `json:"to,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e MessageNew) Name() string           { return MessageNewName }
func (e MessageNew) ConversationID() string { return e.Conversation }

// MessageDelivered carries the ids of messages newly delivered to By.
type MessageDelivered struct {
	Conversation string   `json:"conversationId"`
	By           string   `json:"by"`
	MessageIDs   []string `json:"messageIds"`
}

func (e MessageDelivered) Name() string           { return MessageDeliveredName }
func (e MessageDelivered) ConversationID() string { return e.Conversation }

// MessageRead is either conversation-wide (All) or scoped to one message.
type MessageRead struct {
	Conversation string `json:"conversationId"`
	By           string `json:"by"`
	All          bool   `json:"all,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
}

func (e MessageRead) Name() string           { return MessageReadName }
func (e MessageRead) ConversationID() string { return e.Conversation }

// PresenceUpdate is global: every live connection hears about it.
type PresenceUpdate struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func (e PresenceUpdate) Name() string           { return PresenceUpdateName }
func (e PresenceUpdate) ConversationID() string { return "" }
