//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"cms-messaging/contract"
	"cms-messaging/domain"
	"cms-messaging/domain/event"
	"cms-messaging/errors"
	"cms-messaging/repositories"
)

// ConversationPreview is a conversation plus its most recent message,
// the shape the conversation list renders from. LastMessage is nil for
// an empty conversation.
type ConversationPreview struct {
	domain.Conversation
	LastMessage *domain.Message `json:"lastMessage"`
}

type IMessageService interface {
	CreateConversation(creatorID string, participants []string, title string, isGroup bool) (domain.Conversation, error)
	ListConversations(principalID string) ([]ConversationPreview, error)
	ListMessages(principalID, conversationID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, principalID, conversationID, text string, to []string) (domain.Message, error)
	MarkConversationRead(principalID, conversationID string) (int, error)
	MarkMessageRead(principalID, messageID string) error
}

// MessageService owns the messaging core's state transitions. Every
// conversation-scoped operation applies the membership guard first and
// fails closed; events are published only after the persistence
// mutation succeeded.
type MessageService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	publisher     contract.IPublisher
}

func NewMessageService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	publisher contract.IPublisher,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
	}
}

// guard loads the conversation and enforces membership. Missing
// conversation and foreign principal are both denials, distinguished
// only by the error the transport maps to 404 vs 403.
func (s *MessageService) guard(conversationID, principalID string) (domain.Conversation, error) {
	convo, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !convo.IsMember(principalID) {
		return domain.Conversation{}, errors.ErrNotMember
	}
	return convo, nil
}

// CreateConversation starts a conversation. The creator is always part
// of the participant set, which may never be empty.
func (s *MessageService) CreateConversation(creatorID string, participants []string, title string, isGroup bool) (domain.Conversation, error) {
	set := make([]string, 0, len(participants)+1)
	seen := make(map[string]struct{})
	for _, p := range append([]string{creatorID}, participants...) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		set = append(set, p)
	}
	if len(set) == 0 {
		return domain.Conversation{}, errors.ErrNoParticipants
	}

	now := time.Now().UTC()
	convo := domain.Conversation{
		ID:           uuid.NewString(),
		Participants: set,
		Title:        strings.TrimSpace(title),
		IsGroup:      isGroup,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conversations.Create(convo); err != nil {
		return domain.Conversation{}, err
	}
	return convo, nil
}

// ListConversations returns the principal's conversations, most recently
// active first, each with its latest message attached. The preview
// tie-break on equal timestamps follows storage key order, which is
// stable but best-effort.
func (s *MessageService) ListConversations(principalID string) ([]ConversationPreview, error) {
	conversations, err := s.conversations.ListForParticipant(principalID)
	if err != nil {
		return nil, err
	}

	previews := make([]ConversationPreview, 0, len(conversations))
	for _, convo := range conversations {
		last, err := s.messages.Last(convo.ID)
		if err != nil {
			return nil, err
		}
		previews = append(previews, ConversationPreview{Conversation: convo, LastMessage: last})
	}
	return previews, nil
}

// ListMessages returns a conversation's messages oldest-first. Viewing
// is the system's definition of delivery: every message not authored by
// the principal and not yet delivered to them gets the principal added
// to deliveredTo, and one delivered event carries the affected ids.
func (s *MessageService) ListMessages(principalID, conversationID string) ([]domain.Message, error) {
	if _, err := s.guard(conversationID, principalID); err != nil {
		return nil, err
	}

	affected, err := s.messages.MarkDelivered(conversationID, principalID)
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 {
		s.publisher.Publish(event.MessageDelivered{
			Conversation: conversationID,
			By:           principalID,
			MessageIDs:   affected,
		})
	}

	return s.messages.List(conversationID)
}

// SendMessage validates, persists and announces a new message. The
// second delivered event covers the sender's own copy so their client
// shows "delivered" without waiting for a recipient round trip.
func (s *MessageService) SendMessage(_ context.Context, principalID, conversationID, text string, to []string) (domain.Message, error) {
	if _, err := s.guard(conversationID, principalID); err != nil {
		return domain.Message{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, errors.ErrEmptyText
	}

	message := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		From:           principalID,
		To:             to,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
		DeliveredTo:    []string{},
		ReadBy:         []string{},
	}
	if err := s.messages.Store(message); err != nil {
		return domain.Message{}, err
	}
	if err := s.conversations.TouchActivity(conversationID, message.CreatedAt); err != nil {
		return domain.Message{}, err
	}

	s.publisher.Publish(event.MessageNew{
		ID:           message.ID,
		Conversation: conversationID,
		From:         principalID,
		To:           to,
		Text:         message.Text,
		CreatedAt:    message.CreatedAt,
	})
	s.publisher.Publish(event.MessageDelivered{
		Conversation: conversationID,
		By:           principalID,
		MessageIDs:   []string{message.ID},
	})
	return message, nil
}

// MarkConversationRead marks every message not authored by the principal
// as read by them and reports how many changed. Idempotent: a second
// call returns zero. One conversation-scoped read event fires either way.
func (s *MessageService) MarkConversationRead(principalID, conversationID string) (int, error) {
	if _, err := s.guard(conversationID, principalID); err != nil {
		return 0, err
	}

	modified, err := s.messages.MarkConversationRead(conversationID, principalID)
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(event.MessageRead{
		Conversation: conversationID,
		By:           principalID,
		All:          true,
	})
	return modified, nil
}

// MarkMessageRead marks a single message as read by the principal.
// Repeated calls succeed without publishing a duplicate event.
func (s *MessageService) MarkMessageRead(principalID, messageID string) error {
	message, err := s.messages.Get(messageID)
	if err != nil {
		return err
	}
	if _, err := s.guard(message.ConversationID, principalID); err != nil {
		return err
	}

	changed, err := s.messages.MarkMessageRead(messageID, principalID)
	if err != nil {
		return err
	}
	if changed {
		s.publisher.Publish(event.MessageRead{
			Conversation: message.ConversationID,
			By:           principalID,
			MessageID:    messageID,
		})
	}
	return nil
}
