package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cms-messaging/domain"
	"cms-messaging/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(conversationID, from, text string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		From:           from,
		Text:           text,
		CreatedAt:      at,
		DeliveredTo:    []string{},
		ReadBy:         []string{},
	}
}

func Test_Store_And_List_Keeps_Chronological_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	convo := uuid.NewString()
	at := time.Now().UTC()
	stored := []domain.Message{
		newMessage(convo, "alice", "first", at),
		newMessage(convo, "bob", "second", at.Add(1*time.Minute)),
		newMessage(convo, "clara", "third", at.Add(2*time.Minute)),
	}
	// Insert out of order: the padded timestamp key must restore it.
	for _, i := range []int{2, 0, 1} {
		req.NoError(repository.Store(stored[i]))
	}

	fetched, err := repository.List(convo)
	req.NoError(err)
	req.Equal(stored, fetched)
}

func Test_List_Does_Not_Leak_Other_Conversations(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	at := time.Now().UTC()
	mine := uuid.NewString()
	other := uuid.NewString()
	req.NoError(repository.Store(newMessage(mine, "alice", "here", at)))
	req.NoError(repository.Store(newMessage(other, "bob", "elsewhere", at)))

	fetched, err := repository.List(mine)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("here", fetched[0].Text)
}

func Test_Last_Returns_Most_Recent_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	convo := uuid.NewString()
	at := time.Now().UTC()

	// Given an empty conversation there is no preview
	last, err := repository.Last(convo)
	req.NoError(err)
	req.Nil(last)

	// When two messages exist
	req.NoError(repository.Store(newMessage(convo, "alice", "m1", at)))
	m2 := newMessage(convo, "bob", "m2", at.Add(1*time.Second))
	req.NoError(repository.Store(m2))

	// Then the newest one is the preview
	last, err = repository.Last(convo)
	req.NoError(err)
	req.NotNil(last)
	req.Equal(m2, *last)
}

func Test_MarkDelivered_Is_Monotonic_And_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	convo := uuid.NewString()
	at := time.Now().UTC()
	fromAlice := newMessage(convo, "alice", "hello", at)
	fromBob := newMessage(convo, "bob", "hi back", at.Add(1*time.Second))
	req.NoError(repository.Store(fromAlice))
	req.NoError(repository.Store(fromBob))

	// When bob views the conversation
	affected, err := repository.MarkDelivered(convo, "bob")
	req.NoError(err)

	// Then only alice's message is newly delivered to him
	req.Equal([]string{fromAlice.ID}, affected)

	messages, err := repository.List(convo)
	req.NoError(err)
	req.Equal([]string{"bob"}, messages[0].DeliveredTo)
	req.Empty(messages[1].DeliveredTo)

	// And a second viewing changes nothing
	affected, err = repository.MarkDelivered(convo, "bob")
	req.NoError(err)
	req.Empty(affected)

	messages, err = repository.List(convo)
	req.NoError(err)
	req.Equal([]string{"bob"}, messages[0].DeliveredTo)
}

func Test_MarkConversationRead_Counts_Only_New_Marks(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	convo := uuid.NewString()
	at := time.Now().UTC()
	req.NoError(repository.Store(newMessage(convo, "alice", "one", at)))
	req.NoError(repository.Store(newMessage(convo, "alice", "two", at.Add(1*time.Second))))
	req.NoError(repository.Store(newMessage(convo, "bob", "mine", at.Add(2*time.Second))))

	// When bob catches up
	modified, err := repository.MarkConversationRead(convo, "bob")
	req.NoError(err)

	// Then only the two messages he did not author are marked
	req.Equal(2, modified)

	// And the second call is a no-op
	modified, err = repository.MarkConversationRead(convo, "bob")
	req.NoError(err)
	req.Equal(0, modified)
}

func Test_MarkMessageRead_Single_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	convo := uuid.NewString()
	message := newMessage(convo, "alice", "hello", time.Now().UTC())
	req.NoError(repository.Store(message))

	changed, err := repository.MarkMessageRead(message.ID, "bob")
	req.NoError(err)
	req.True(changed)

	// Idempotent: the set does not change twice
	changed, err = repository.MarkMessageRead(message.ID, "bob")
	req.NoError(err)
	req.False(changed)

	fetched, err := repository.Get(message.ID)
	req.NoError(err)
	req.Equal([]string{"bob"}, fetched.ReadBy)
}

func Test_Get_Unknown_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	_, err := repository.Get(uuid.NewString())
	req.ErrorIs(err, errors.ErrMessageNotFound)

	_, err = repository.MarkMessageRead(uuid.NewString(), "bob")
	req.ErrorIs(err, errors.ErrMessageNotFound)
}
