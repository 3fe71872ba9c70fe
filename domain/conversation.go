// Package domain contains core concepts of the messaging system.
// This file defines Conversation entities and the membership invariant.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"
)

// Conversation groups principals who may exchange messages.
// Participants is a set: no duplicates, never empty.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Title        string    `json:"title,omitempty"`
	IsGroup      bool      `json:"isGroup"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsMember is the single authorization primitive of the messaging core.
// Every conversation-scoped operation must call it and fail closed.
func (c Conversation) IsMember(principalID string) bool {
	for _, p := range c.Participants {
		if p == principalID {
			return true
		}
	}
	return false
}
