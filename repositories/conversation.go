//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"cms-messaging/domain"
	"cms-messaging/errors"
)

const convoPrefix = "convo:"

type IConversationRepository interface {
	Create(convo domain.Conversation) error
	Get(id string) (domain.Conversation, error)
	ListForParticipant(principalID string) ([]domain.Conversation, error)
	TouchActivity(id string, at time.Time) error
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

func convoKey(id string) []byte {
	return []byte(convoPrefix + id)
}

// Create persists a conversation document under "convo:{id}".
func (c ConversationRepository) Create(convo domain.Conversation) error {
	data, err := json.Marshal(convo)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(convoKey(convo.ID), data)
	})
}

func (c ConversationRepository) Get(id string) (domain.Conversation, error) {
	var convo domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convoKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &convo)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return convo, nil
}

// ListForParticipant scans the conversation prefix and keeps documents
// whose participant set contains the principal, most recently active
// first. The dataset is one dashboard's conversations, so a full prefix
// scan is the Badger equivalent of the indexed Mongo find.
func (c ConversationRepository) ListForParticipant(principalID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(convoPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var convo domain.Conversation
				if err := json.Unmarshal(val, &convo); err != nil {
					return err
				}
				if convo.IsMember(principalID) {
					conversations = append(conversations, convo)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// TouchActivity bumps the conversation's last-activity timestamp.
// Runs as a read-modify-write inside one transaction, retried on
// conflict so concurrent sends never lose the bump.
func (c ConversationRepository) TouchActivity(id string, at time.Time) error {
	return updateWithRetry(c.db, func(txn *badger.Txn) error {
		item, err := txn.Get(convoKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		var convo domain.Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &convo)
		}); err != nil {
			return err
		}
		if at.After(convo.UpdatedAt) {
			convo.UpdatedAt = at
		}
		data, err := json.Marshal(convo)
		if err != nil {
			return err
		}
		return txn.Set(convoKey(id), data)
	})
}

const maxTxnRetries = 3

// updateWithRetry re-runs an update transaction on optimistic-concurrency
// conflicts. Set-insert style mutations are idempotent, so a bounded
// retry gives the same lost-update safety as Mongo's $addToSet.
func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
	return err
}
