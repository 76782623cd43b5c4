package repositories

import (
	"encoding/json"
	"fmt"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

type IConversationRepository interface {
	CreateConversation(conversation domain.Conversation) error
	GetConversation(id domain.ConversationID) (domain.Conversation, error)
	FindByPair(pair domain.PairKey) (domain.ConversationID, error)
	ListConversationIDs(userID domain.UserID) ([]domain.ConversationID, error)
}

type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) ConversationRepository {
	return ConversationRepository{db: db}
}

type DiskConversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    int64     `json:"created_at"`
}

// CreateConversation writes the conversation, its pair key and both
// membership entries in a single transaction, so a partial participant set is
// never visible. It fails with ErrConversationExists when the pair is already
// taken or when a concurrent creation for the same pair won the commit.
func (r ConversationRepository) CreateConversation(conversation domain.Conversation) error {
	data, err := json.Marshal(fromConversation(conversation))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		key := pairKey(conversation.PairKey())
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrConversationExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err = txn.Set(key, []byte(conversation.ID)); err != nil {
			return err
		}
		if err = txn.Set(conversationKey(conversation.ID), data); err != nil {
			return err
		}
		for _, p := range conversation.ParticipantRows() {
			if err = txn.Set(participationKey(p.UserID, p.ConversationID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return errors.ErrConversationExists
	}
	return storeError(err)
}

func (r ConversationRepository) GetConversation(id domain.ConversationID) (domain.Conversation, error) {
	var disk DiskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if err != nil {
		return domain.Conversation{}, storeError(err)
	}
	return toConversation(disk), nil
}

func (r ConversationRepository) FindByPair(pair domain.PairKey) (domain.ConversationID, error) {
	var id domain.ConversationID
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(pair))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		id = domain.ConversationID(value)
		return err
	})
	return id, storeError(err)
}

// ListConversationIDs scans the membership index of a user; only keys are read.
func (r ConversationRepository) ListConversationIDs(userID domain.UserID) ([]domain.ConversationID, error) {
	var ids []domain.ConversationID
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := participationPrefixKey(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, domain.ConversationID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return ids, nil
}

func fromConversation(c domain.Conversation) DiskConversation {
	return DiskConversation{
		ID:           string(c.ID),
		Participants: [2]string{string(c.Participants[0]), string(c.Participants[1])},
		CreatedAt:    c.CreatedAt.UnixNano(),
	}
}

func toConversation(d DiskConversation) domain.Conversation {
	return domain.Conversation{
		ID:           domain.ConversationID(d.ID),
		Participants: [2]domain.UserID{domain.UserID(d.Participants[0]), domain.UserID(d.Participants[1])},
		CreatedAt:    time.Unix(0, d.CreatedAt).UTC(),
	}
}
