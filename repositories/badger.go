package repositories

import (
	"fmt"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	conv:{conversation}                  -> DiskConversation
//	pair:{low}:{high}                    -> conversation id, unique per unordered pair
//	part:{user}:{conversation}           -> membership index
//	msg:{conversation}:{ts019}:{message} -> DiskMessage, ordered by timestamp
//	msgid:{message}                      -> msg key
//	head:{conversation}                  -> last assigned timestamp
const (
	conversationPrefix  = "conv:"
	pairPrefix          = "pair:"
	participationPrefix = "part:"
	messagePrefix       = "msg:"
	messageIndexPrefix  = "msgid:"
	headPrefix          = "head:"

	maxConflictRetries = 50
)

func conversationKey(id domain.ConversationID) []byte {
	return []byte(conversationPrefix + string(id))
}

func pairKey(pair domain.PairKey) []byte {
	return []byte(pairPrefix + pair.String())
}

func participationPrefixKey(userID domain.UserID) []byte {
	return []byte(participationPrefix + string(userID) + ":")
}

func participationKey(userID domain.UserID, id domain.ConversationID) []byte {
	return append(participationPrefixKey(userID), id...)
}

func messagePrefixKey(id domain.ConversationID) []byte {
	return []byte(messagePrefix + string(id) + ":")
}

// messageKey is zero padded on 19 digits so that lexicographical order is
// chronological; the message id breaks ties.
func messageKey(conversationID domain.ConversationID, at int64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, conversationID, at, id))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte(messageIndexPrefix + id.String())
}

func headKey(id domain.ConversationID) []byte {
	return []byte(headPrefix + string(id))
}

// storeError keeps domain errors raised inside a transaction and flags
// everything else as a transient store failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrConversationNotFound),
		errors.Is(err, errors.ErrConversationExists),
		errors.Is(err, errors.ErrMessageNotFound):
		return err
	default:
		return errors.Unavailable(err)
	}
}

// retryOnConflict replays op while badger reports a write conflict.
// Any other error stops the retries immediately.
func retryOnConflict(op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Millisecond
	policy.MaxInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(policy, maxConflictRetries))
}
