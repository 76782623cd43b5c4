package services

import (
	"context"
	"log/slog"
	"testing"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
	"tutor-chat/repositories"
	"tutor-chat/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	log           *slog.Logger
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	registry      *runtime.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return fixture{
		log:           log,
		conversations: repositories.NewConversationRepository(db),
		messages:      repositories.NewMessageRepository(db, log),
		registry:      runtime.NewRegistry(),
	}
}

func (f fixture) resolver() *ConversationResolver {
	return NewConversationResolver(f.log, f.conversations, nil)
}

func (f fixture) messageService() *MessageService {
	return NewMessageService(f.log, f.conversations, f.messages, syncPublisher{registry: f.registry}, nil, 2000)
}

func (f fixture) conversation(t *testing.T, a, b domain.UserID) domain.ConversationID {
	t.Helper()
	id, err := f.resolver().ResolveConversation(context.Background(), a, b)
	require.NoError(t, err)
	return id
}

func (f fixture) send(t *testing.T, conversationID domain.ConversationID, sender domain.UserID, content string) domain.Message {
	t.Helper()
	message, err := f.messageService().Append(context.Background(), domain.AppendMessageCommand{
		Conversation: conversationID,
		SenderID:     sender,
		Content:      content,
	})
	require.NoError(t, err)
	return message
}

// syncPublisher hands events straight to the registered sinks
type syncPublisher struct {
	registry *runtime.Registry
}

func (p syncPublisher) Publish(ctx context.Context, e event.DomainEvent) error {
	for _, sink := range p.registry.GetSinksForConversation(e.Conversation()) {
		if err := sink.Consume(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
