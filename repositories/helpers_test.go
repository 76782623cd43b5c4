package repositories

import (
	"testing"
	"time"
	"tutor-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createConversation(t *testing.T, repository ConversationRepository, a, b domain.UserID) domain.Conversation {
	t.Helper()
	conversation, err := domain.NewConversation(domain.ConversationID(uuid.NewString()), a, b, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repository.CreateConversation(conversation))
	return conversation
}
