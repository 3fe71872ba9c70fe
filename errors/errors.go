package errors

import "fmt"

var (
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrNotMember            = fmt.Errorf("not a conversation member")
	ErrEmptyText            = fmt.Errorf("message text is required")
	ErrNoParticipants       = fmt.Errorf("conversation needs at least one participant")
	ErrUserAlreadyExists    = fmt.Errorf("user already exists")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials")
	ErrInvalidPassword      = fmt.Errorf("password must mix upper, lower, digit and symbol")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)
