package domain

import (
	"time"
)

// User is the account behind a principal. The messaging core only ever
// sees the id; the rest belongs to the auth collaborator.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal is the authenticated identity attached to a request or a
// realtime connection. A websocket connection may carry no principal at
// all (optimistic auth), in which case identity-bound features no-op.
type Principal struct {
	ID       string
	Username string
	Email    string
	Roles    []string
}
