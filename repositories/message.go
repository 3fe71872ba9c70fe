//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"cms-messaging/domain"
	"cms-messaging/errors"
)

type IMessageRepository interface {
	Store(message domain.Message) error
	Get(messageID string) (domain.Message, error)
	List(conversationID string) ([]domain.Message, error)
	Last(conversationID string) (*domain.Message, error)
	MarkDelivered(conversationID, principalID string) ([]string, error)
	MarkConversationRead(conversationID, principalID string) (int, error)
	MarkMessageRead(messageID, principalID string) (bool, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// messageKey formats the primary key as "msg:{conversation}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep ordering stable when two messages share the same nanosecond,
//     with the UUID acting as the collision disconnector.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID))
}

func messagePrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

// indexKey maps a bare message id to its primary key, for operations
// addressed by message id alone.
func indexKey(messageID string) []byte {
	return []byte("msgid:" + messageID)
}

// Store persists a message and its id index entry in one transaction.
func (m MessageRepository) Store(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	primary := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), primary)
	})
}

func (m MessageRepository) Get(messageID string) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, _, err = getByID(txn, messageID)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// List returns the conversation's messages oldest-first. Ordering comes
// for free from the padded timestamp in the key.
func (m MessageRepository) List(conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := messagePrefix(conversationID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var message domain.Message
				if err := json.Unmarshal(val, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Last returns the most recent message of a conversation, or nil if the
// conversation has none. A reverse iterator seeks past the highest
// possible timestamp and stops at the first key under the prefix.
func (m MessageRepository) Last(conversationID string) (*domain.Message, error) {
	var last *domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := messagePrefix(conversationID)
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			var message domain.Message
			if err := json.Unmarshal(val, &message); err != nil {
				return err
			}
			last = &message
			return nil
		})
	})
	return last, err
}

// MarkDelivered adds the principal to deliveredTo on every message of the
// conversation they did not author and have not yet received. Returns the
// ids of the affected messages in chronological order. Idempotent:
// already-delivered messages are skipped, so repeated listings by the
// same principal converge.
func (m MessageRepository) MarkDelivered(conversationID, principalID string) ([]string, error) {
	var affected []string
	err := updateWithRetry(m.db, func(txn *badger.Txn) error {
		affected = affected[:0]
		return m.mutatePrefix(txn, conversationID, func(message *domain.Message) bool {
			if message.From == principalID || message.DeliveredFor(principalID) {
				return false
			}
			message.DeliveredTo = append(message.DeliveredTo, principalID)
			affected = append(affected, message.ID)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// MarkConversationRead adds the principal to readBy on every message of
// the conversation they did not author, returning how many were newly
// marked. The second call in a row is a no-op returning zero.
func (m MessageRepository) MarkConversationRead(conversationID, principalID string) (int, error) {
	modified := 0
	err := updateWithRetry(m.db, func(txn *badger.Txn) error {
		modified = 0
		return m.mutatePrefix(txn, conversationID, func(message *domain.Message) bool {
			if message.From == principalID || message.ReadFor(principalID) {
				return false
			}
			message.ReadBy = append(message.ReadBy, principalID)
			modified++
			return true
		})
	})
	if err != nil {
		return 0, err
	}
	return modified, nil
}

// MarkMessageRead adds the principal to one message's readBy set.
// The boolean reports whether the set actually changed.
func (m MessageRepository) MarkMessageRead(messageID, principalID string) (bool, error) {
	changed := false
	err := updateWithRetry(m.db, func(txn *badger.Txn) error {
		changed = false
		message, primary, err := getByID(txn, messageID)
		if err != nil {
			return err
		}
		if message.ReadFor(principalID) {
			return nil
		}
		message.ReadBy = append(message.ReadBy, principalID)
		data, err := json.Marshal(message)
		if err != nil {
			return err
		}
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// mutatePrefix walks every message of a conversation inside txn and
// rewrites the ones mutate reports as changed.
func (m MessageRepository) mutatePrefix(txn *badger.Txn, conversationID string, mutate func(*domain.Message) bool) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := messagePrefix(conversationID)

	type pending struct {
		key  []byte
		data []byte
	}
	var updates []pending

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		err := item.Value(func(val []byte) error {
			var message domain.Message
			if err := json.Unmarshal(val, &message); err != nil {
				return err
			}
			if !mutate(&message) {
				return nil
			}
			data, err := json.Marshal(message)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: key, data: data})
			return nil
		})
		if err != nil {
			return err
		}
	}
	// Writes happen after iteration: Badger forbids Set while an
	// iterator is open on the same transaction.
	for _, u := range updates {
		if err := txn.Set(u.key, u.data); err != nil {
			return err
		}
	}
	return nil
}

func getByID(txn *badger.Txn, messageID string) (domain.Message, []byte, error) {
	item, err := txn.Get(indexKey(messageID))
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	var primary []byte
	if err := item.Value(func(val []byte) error {
		primary = append(primary, val...)
		return nil
	}); err != nil {
		return domain.Message{}, nil, err
	}
	item, err = txn.Get(primary)
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	var message domain.Message
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &message)
	}); err != nil {
		return domain.Message{}, nil, err
	}
	return message, primary, nil
}
