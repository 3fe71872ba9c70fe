package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cms-messaging/domain/event"
	"cms-messaging/errors"
	"cms-messaging/repositories"
)

// recordingPublisher captures published events; the real bus is
// fire-and-forget so tests assert on what would have been fanned out.
type recordingPublisher struct {
	events []event.DomainEvent
}

func (p *recordingPublisher) Publish(e event.DomainEvent) {
	p.events = append(p.events, e)
}

func newTestService(t *testing.T) (*MessageService, *recordingPublisher) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	publisher := &recordingPublisher{}
	service := NewMessageService(
		repositories.NewConversationRepository(db, slog.Default()),
		repositories.NewMessageRepository(db, slog.Default()),
		publisher,
	)
	return service, publisher
}

func TestCreateConversation_Creator_Always_Member(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	convo, err := service.CreateConversation("alice", []string{"bob", "bob", "alice"}, " standup ", true)
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, convo.Participants)
	req.Equal("standup", convo.Title)
	req.True(convo.IsGroup)

	// The participant set is never empty
	_, err = service.CreateConversation("", nil, "", false)
	req.ErrorIs(err, errors.ErrNoParticipants)
}

func TestSendMessage_Rejects_Blank_Text(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)

	for _, text := range []string{"", "   "} {
		_, err = service.SendMessage(context.Background(), "alice", convo.ID, text, nil)
		req.ErrorIs(err, errors.ErrEmptyText)
	}

	// No message was created and nothing was announced
	messages, err := service.ListMessages("alice", convo.ID)
	req.NoError(err)
	req.Empty(messages)
	req.Empty(publisher.events)
}

func TestSendMessage_Publishes_New_Then_Sender_Delivery(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)

	message, err := service.SendMessage(context.Background(), "alice", convo.ID, "  hello  ", []string{"bob"})
	req.NoError(err)
	req.Equal("hello", message.Text)
	req.Empty(message.DeliveredTo)
	req.Empty(message.ReadBy)

	req.Len(publisher.events, 2)
	newEvt, ok := publisher.events[0].(event.MessageNew)
	req.True(ok)
	req.Equal(message.ID, newEvt.ID)
	req.Equal("alice", newEvt.From)

	// The sender sees their own copy as delivered without a round trip
	deliveredEvt, ok := publisher.events[1].(event.MessageDelivered)
	req.True(ok)
	req.Equal("alice", deliveredEvt.By)
	req.Equal([]string{message.ID}, deliveredEvt.MessageIDs)
}

func TestSendMessage_Bumps_Conversation_Activity(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	first, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)
	second, err := service.CreateConversation("alice", []string{"clara"}, "", false)
	req.NoError(err)

	// When the older conversation receives a message
	_, err = service.SendMessage(context.Background(), "alice", first.ID, "ping", nil)
	req.NoError(err)

	// Then it moves to the top of alice's list
	previews, err := service.ListConversations("alice")
	req.NoError(err)
	req.Len(previews, 2)
	req.Equal(first.ID, previews[0].ID)
	req.Equal(second.ID, previews[1].ID)
}

func TestListConversations_Attaches_Last_Message_Preview(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)

	// An empty conversation has a null preview
	previews, err := service.ListConversations("alice")
	req.NoError(err)
	req.Len(previews, 1)
	req.Nil(previews[0].LastMessage)

	_, err = service.SendMessage(context.Background(), "alice", convo.ID, "m1", nil)
	req.NoError(err)
	m2, err := service.SendMessage(context.Background(), "alice", convo.ID, "m2", nil)
	req.NoError(err)

	// The preview is the most recent message. On equal timestamps the
	// tie-break follows storage key order: stable, but best-effort.
	previews, err = service.ListConversations("alice")
	req.NoError(err)
	req.NotNil(previews[0].LastMessage)
	req.Equal(m2.ID, previews[0].LastMessage.ID)
}

func TestListMessages_Delivers_To_The_Viewer(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)

	sent, err := service.SendMessage(context.Background(), "alice", convo.ID, "hello", nil)
	req.NoError(err)
	publisher.events = nil

	// When bob views the conversation
	messages, err := service.ListMessages("bob", convo.ID)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("hello", messages[0].Text)

	// Then he is recorded as having received it
	req.Equal([]string{"bob"}, messages[0].DeliveredTo)
	req.Len(publisher.events, 1)
	deliveredEvt, ok := publisher.events[0].(event.MessageDelivered)
	req.True(ok)
	req.Equal("bob", deliveredEvt.By)
	req.Equal([]string{sent.ID}, deliveredEvt.MessageIDs)

	// And a second viewing neither duplicates him nor re-announces
	publisher.events = nil
	messages, err = service.ListMessages("bob", convo.ID)
	req.NoError(err)
	req.Equal([]string{"bob"}, messages[0].DeliveredTo)
	req.Empty(publisher.events)

	// The sender's own viewing never touches deliveredTo
	_, err = service.ListMessages("alice", convo.ID)
	req.NoError(err)
	req.Empty(publisher.events)
}

func TestMarkConversationRead_Second_Call_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)
	_, err = service.SendMessage(context.Background(), "alice", convo.ID, "hello", nil)
	req.NoError(err)
	publisher.events = nil

	modified, err := service.MarkConversationRead("bob", convo.ID)
	req.NoError(err)
	req.Equal(1, modified)

	modified, err = service.MarkConversationRead("bob", convo.ID)
	req.NoError(err)
	req.Equal(0, modified)

	// One conversation-scoped read event per call, flagged "all"
	req.Len(publisher.events, 2)
	readEvt, ok := publisher.events[0].(event.MessageRead)
	req.True(ok)
	req.True(readEvt.All)
	req.Equal("bob", readEvt.By)
}

func TestMarkMessageRead_Publishes_Only_On_First_Transition(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)
	sent, err := service.SendMessage(context.Background(), "alice", convo.ID, "hello", nil)
	req.NoError(err)
	publisher.events = nil

	req.NoError(service.MarkMessageRead("bob", sent.ID))
	req.NoError(service.MarkMessageRead("bob", sent.ID))

	req.Len(publisher.events, 1)
	readEvt, ok := publisher.events[0].(event.MessageRead)
	req.True(ok)
	req.False(readEvt.All)
	req.Equal(sent.ID, readEvt.MessageID)
}

func TestMembershipGate_Fails_Closed_For_Strangers(t *testing.T) {
	req := require.New(t)
	service, publisher := newTestService(t)
	convo, err := service.CreateConversation("alice", []string{"bob"}, "", false)
	req.NoError(err)
	sent, err := service.SendMessage(context.Background(), "alice", convo.ID, "private", nil)
	req.NoError(err)
	publisher.events = nil

	// Given clara is not a participant, every operation is denied
	_, err = service.ListMessages("clara", convo.ID)
	req.ErrorIs(err, errors.ErrNotMember)

	_, err = service.SendMessage(context.Background(), "clara", convo.ID, "let me in", nil)
	req.ErrorIs(err, errors.ErrNotMember)

	_, err = service.MarkConversationRead("clara", convo.ID)
	req.ErrorIs(err, errors.ErrNotMember)

	req.ErrorIs(service.MarkMessageRead("clara", sent.ID), errors.ErrNotMember)

	// And nothing changed or was announced
	req.Empty(publisher.events)
	messages, err := service.ListMessages("alice", convo.ID)
	req.NoError(err)
	req.Len(messages, 1)
	req.Empty(messages[0].DeliveredTo)
	req.Empty(messages[0].ReadBy)

	// She does not see the conversation either
	previews, err := service.ListConversations("clara")
	req.NoError(err)
	req.Empty(previews)
}

func TestOperations_On_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	unknown := uuid.NewString()
	_, err := service.ListMessages("alice", unknown)
	req.ErrorIs(err, errors.ErrConversationNotFound)

	_, err = service.SendMessage(context.Background(), "alice", unknown, "hello", nil)
	req.ErrorIs(err, errors.ErrConversationNotFound)

	req.ErrorIs(service.MarkMessageRead("alice", uuid.NewString()), errors.ErrMessageNotFound)
}
