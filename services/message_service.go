package services

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
	"tutor-chat/errors"
	"tutor-chat/observability"
	"tutor-chat/repositories"

	"github.com/google/uuid"
)

type IMessageService interface {
	Append(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
	MarkRead(ctx context.Context, ids []uuid.UUID) error
	GetConversation(ctx context.Context, conversationID domain.ConversationID, viewerID domain.UserID) (domain.Conversation, error)
}

const (
	DefaultPublishTimeout = 5 * time.Second
	lockStripes           = 64
)

// conversationLocks serializes appends per conversation. Conversations sharing
// a stripe also share a lock.
type conversationLocks [lockStripes]sync.Mutex

func (l *conversationLocks) lock(id domain.ConversationID) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &l[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

type MessageService struct {
	log              *slog.Logger
	conversations    repositories.IConversationRepository
	messages         repositories.IMessageRepository
	publisher        contract.IPublisher
	metrics          *observability.Metrics
	maxContentLength int
	publishTimeout   time.Duration
	locks            conversationLocks
	now              func() time.Time
}

func NewMessageService(log *slog.Logger, conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository, publisher contract.IPublisher,
	metrics *observability.Metrics, maxContentLength int) *MessageService {
	return &MessageService{
		log:              log,
		conversations:    conversations,
		messages:         messages,
		publisher:        publisher,
		metrics:          metrics,
		maxContentLength: maxContentLength,
		publishTimeout:   DefaultPublishTimeout,
		now:              time.Now,
	}
}

// WithPublishTimeout bounds how long an append waits for a full event queue.
func (s *MessageService) WithPublishTimeout(timeout time.Duration) *MessageService {
	if timeout > 0 {
		s.publishTimeout = timeout
	}
	return s
}

// Append validates, persists and then publishes a message.
// Store and publish run under the conversation lock, so events reach the
// channel in append order. Store failures are returned so the sender can
// retry; a failed publish is only logged because the message is already
// durable and open subscriptions resync from the store.
// The publish outlives the caller's context, bounded by publishTimeout.
func (s *MessageService) Append(ctx context.Context, cmd domain.AppendMessageCommand) (domain.Message, error) {
	content, err := domain.NormalizeContent(cmd.Content, s.maxContentLength)
	if err != nil {
		return domain.Message{}, err
	}
	if _, err = s.GetConversation(ctx, cmd.Target(), cmd.SenderID); err != nil {
		return domain.Message{}, err
	}

	unlock := s.locks.lock(cmd.Target())
	defer unlock()

	stored, err := s.messages.AppendMessage(domain.Message{
		ID:             uuid.New(),
		ConversationID: cmd.Target(),
		SenderID:       cmd.SenderID,
		Content:        content,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		s.log.Error("Message not stored",
			"conversation_id", cmd.Target(),
			"sender_id", cmd.SenderID,
			"error", err)
		return domain.Message{}, err
	}
	s.metrics.MessageAppended()

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err = s.publisher.Publish(publishCtx, event.MessageAppended{Message: stored}); err != nil {
		s.log.Warn("Message stored but not published",
			"conversation_id", stored.ConversationID,
			"message_id", stored.ID,
			"error", err)
	}
	return stored, nil
}

func (s *MessageService) ListByConversation(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.messages.GetMessages(conversationID)
}

// MarkRead is idempotent; unknown ids are ignored.
func (s *MessageService) MarkRead(ctx context.Context, ids []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.messages.MarkRead(ids)
	return err
}

// GetConversation returns the conversation when viewerID is one of its participants.
func (s *MessageService) GetConversation(ctx context.Context, conversationID domain.ConversationID,
	viewerID domain.UserID) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, err
	}
	conversation, err := s.conversations.GetConversation(conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conversation.Has(viewerID) {
		return domain.Conversation{}, errors.ErrNotAParticipant
	}
	return conversation, nil
}
