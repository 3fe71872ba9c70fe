package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cms-messaging/domain"
	"cms-messaging/errors"
)

func newConversation(participants []string, at time.Time) domain.Conversation {
	return domain.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func Test_Create_And_Get_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	convo := newConversation([]string{"alice", "bob"}, time.Now().UTC())
	convo.Title = "project kickoff"
	convo.IsGroup = true
	req.NoError(repository.Create(convo))

	fetched, err := repository.Get(convo.ID)
	req.NoError(err)
	req.Equal(convo, fetched)
}

func Test_Get_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	_, err := repository.Get(uuid.NewString())
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func Test_ListForParticipant_Filters_And_Sorts_By_Activity(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	at := time.Now().UTC()
	older := newConversation([]string{"alice", "bob"}, at)
	newer := newConversation([]string{"alice", "clara"}, at.Add(1*time.Hour))
	foreign := newConversation([]string{"bob", "clara"}, at.Add(2*time.Hour))
	for _, c := range []domain.Conversation{older, newer, foreign} {
		req.NoError(repository.Create(c))
	}

	// When alice lists her conversations
	conversations, err := repository.ListForParticipant("alice")
	req.NoError(err)

	// Then she sees only her own, most recently active first
	req.Equal([]domain.Conversation{newer, older}, conversations)
}

func Test_TouchActivity_Bumps_Last_Activity(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db, slog.Default())

	at := time.Now().UTC()
	convo := newConversation([]string{"alice"}, at)
	req.NoError(repository.Create(convo))

	bump := at.Add(5 * time.Minute)
	req.NoError(repository.TouchActivity(convo.ID, bump))

	fetched, err := repository.Get(convo.ID)
	req.NoError(err)
	req.Equal(bump, fetched.UpdatedAt)

	// A stale bump never moves the timestamp backwards
	req.NoError(repository.TouchActivity(convo.ID, at))
	fetched, err = repository.Get(convo.ID)
	req.NoError(err)
	req.Equal(bump, fetched.UpdatedAt)

	// Unknown conversations fail closed
	req.ErrorIs(repository.TouchActivity(uuid.NewString(), bump), errors.ErrConversationNotFound)
}
