package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	AppendMessage(message domain.Message) (domain.Message, error)
	GetMessage(id uuid.UUID) (domain.Message, error)
	GetMessages(conversationID domain.ConversationID) ([]domain.Message, error)
	GetMessagesAfter(conversationID domain.ConversationID, after time.Time) ([]domain.Message, error)
	GetLastMessage(conversationID domain.ConversationID) (*domain.Message, error)
	MarkRead(ids []uuid.UUID) (int, error)
	MarkConversationRead(conversationID domain.ConversationID, viewerID domain.UserID) (int, error)
	CountUnread(conversationID domain.ConversationID, viewerID domain.UserID) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type DiskMessage struct {
	ID           uuid.UUID `json:"id"`
	Conversation string    `json:"conversation_id"`
	Author       string    `json:"sender_id"`
	Content      string    `json:"content"`
	At           int64     `json:"created_at"`
	Read         bool      `json:"read"`
}

// AppendMessage persists a message with read=false.
// The timestamp is bumped past the conversation head when needed, so that it
// is strictly increasing per conversation. Every append reads and rewrites the
// head key: two concurrent appends on one conversation conflict and the loser
// is replayed on top of the winner.
func (m MessageRepository) AppendMessage(message domain.Message) (domain.Message, error) {
	var stored domain.Message
	err := retryOnConflict(func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(conversationKey(message.ConversationID)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return errors.ErrConversationNotFound
				}
				return err
			}
			last, err := readHead(txn, message.ConversationID)
			if err != nil {
				return err
			}
			at := message.CreatedAt.UnixNano()
			if at <= last {
				at = last + 1
			}
			stored = message
			stored.CreatedAt = time.Unix(0, at).UTC()
			stored.Read = false

			data, err := json.Marshal(fromMessage(stored))
			if err != nil {
				return fmt.Errorf("marshal failed: %w", err)
			}
			key := messageKey(stored.ConversationID, at, stored.ID)
			if err = txn.Set(key, data); err != nil {
				return err
			}
			if err = txn.Set(messageIndexKey(stored.ID), key); err != nil {
				return err
			}
			return txn.Set(headKey(stored.ConversationID), []byte(strconv.FormatInt(at, 10)))
		})
	})
	if err != nil {
		return domain.Message{}, storeError(err)
	}
	return stored, nil
}

func readHead(txn *badger.Txn, id domain.ConversationID) (int64, error) {
	item, err := txn.Get(headKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(value), 10, 64)
}

func (m MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		key, err := lookupMessageKey(txn, id)
		if err != nil {
			return err
		}
		message, err = readMessage(txn, key)
		return err
	})
	return message, storeError(err)
}

// GetMessages returns the whole conversation in ascending order.
// Each call reads the current state; there is no cursor.
func (m MessageRepository) GetMessages(conversationID domain.ConversationID) ([]domain.Message, error) {
	return m.scan(conversationID, messagePrefixKey(conversationID))
}

// GetMessagesAfter returns the messages strictly newer than after.
func (m MessageRepository) GetMessagesAfter(conversationID domain.ConversationID, after time.Time) ([]domain.Message, error) {
	if after.IsZero() {
		return m.GetMessages(conversationID)
	}
	seek := []byte(fmt.Sprintf("%s%019d", messagePrefixKey(conversationID), after.UnixNano()+1))
	return m.scan(conversationID, seek)
}

func (m MessageRepository) scan(conversationID domain.ConversationID, seek []byte) ([]domain.Message, error) {
	var disk []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messagePrefixKey(conversationID)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var d DiskMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return err
			}
			disk = append(disk, d)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return lo.Map(disk, func(d DiskMessage, _ int) domain.Message {
		return toMessage(d)
	}), nil
}

// GetLastMessage seeks backwards from the end of the conversation prefix.
// It returns nil when the conversation has no message yet.
func (m MessageRepository) GetLastMessage(conversationID domain.ConversationID) (*domain.Message, error) {
	var last *domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := messagePrefixKey(conversationID)
		// '~' sorts after every digit, so the seek lands past the newest key
		it.Seek(append(prefix, '~'))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var d DiskMessage
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		}); err != nil {
			return err
		}
		last = lo.ToPtr(toMessage(d))
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return last, nil
}

// MarkRead flips the read flag of the given messages.
// Unknown ids and messages already read are skipped. It returns how many
// messages changed.
func (m MessageRepository) MarkRead(ids []uuid.UUID) (int, error) {
	updates := make(map[string]domain.Message)
	err := m.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			key, err := lookupMessageKey(txn, id)
			if errors.Is(err, errors.ErrMessageNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			message, err := readMessage(txn, key)
			if err != nil {
				return err
			}
			if !message.Read {
				updates[string(key)] = message
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError(err)
	}
	return len(updates), m.writeRead(updates)
}

// MarkConversationRead flips every unread message of the conversation that
// was not sent by viewerID.
func (m MessageRepository) MarkConversationRead(conversationID domain.ConversationID, viewerID domain.UserID) (int, error) {
	updates := make(map[string]domain.Message)
	err := m.forEachUnread(conversationID, viewerID, func(key []byte, message domain.Message) {
		updates[string(key)] = message
	})
	if err != nil {
		return 0, storeError(err)
	}
	return len(updates), m.writeRead(updates)
}

func (m MessageRepository) CountUnread(conversationID domain.ConversationID, viewerID domain.UserID) (int, error) {
	count := 0
	err := m.forEachUnread(conversationID, viewerID, func(_ []byte, _ domain.Message) {
		count++
	})
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

func (m MessageRepository) forEachUnread(conversationID domain.ConversationID, viewerID domain.UserID,
	fn func(key []byte, message domain.Message)) error {
	return m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messagePrefixKey(conversationID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var d DiskMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return err
			}
			if d.Read || d.Author == string(viewerID) {
				continue
			}
			fn(item.KeyCopy(nil), toMessage(d))
		}
		return nil
	})
}

// writeRead rewrites messages with read=true through a write batch.
// Message content never changes after the append, so overwriting the whole
// value is safe even when two viewers race on the same message.
func (m MessageRepository) writeRead(updates map[string]domain.Message) error {
	if len(updates) == 0 {
		return nil
	}
	wb := m.db.NewWriteBatch()
	defer wb.Cancel()
	for key, message := range updates {
		message.Read = true
		data, err := json.Marshal(fromMessage(message))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		if err = wb.Set([]byte(key), data); err != nil {
			return storeError(err)
		}
	}
	if err := wb.Flush(); err != nil {
		return storeError(err)
	}
	m.log.Debug("Messages marked as read", "count", len(updates))
	return nil
}

func lookupMessageKey(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messageIndexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readMessage(txn *badger.Txn, key []byte) (domain.Message, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	var d DiskMessage
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &d)
	}); err != nil {
		return domain.Message{}, err
	}
	return toMessage(d), nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:           message.ID,
		Conversation: string(message.ConversationID),
		Author:       string(message.SenderID),
		Content:      message.Content,
		At:           message.CreatedAt.UnixNano(),
		Read:         message.Read,
	}
}

func toMessage(d DiskMessage) domain.Message {
	return domain.Message{
		ID:             d.ID,
		ConversationID: domain.ConversationID(d.Conversation),
		SenderID:       domain.UserID(d.Author),
		Content:        d.Content,
		CreatedAt:      time.Unix(0, d.At).UTC(),
		Read:           d.Read,
	}
}
