// Package domain contains core concepts of the messaging system.
// This file defines Message entities and their receipt-state rules.
// Messages are immutable except for the two receipt sets.
package domain

import (
	"time"
)

// Message is a chat message inside one conversation.
// DeliveredTo and ReadBy are monotonically non-decreasing sets of
// principal ids: once added, an id is never removed. The sender is not
// added to either set as a side effect of their own send.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation"`
	From           string    `json:"from"`
	To             []string  `json:"to,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
	DeliveredTo    []string  `json:"deliveredTo"`
	ReadBy         []string  `json:"readBy"`
}

// DeliveredFor reports whether the message has been delivered to the principal.
func (m Message) DeliveredFor(principalID string) bool {
	return contains(m.DeliveredTo, principalID)
}

// ReadFor reports whether the principal has read the message.
func (m Message) ReadFor(principalID string) bool {
	return contains(m.ReadBy, principalID)
}

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}
