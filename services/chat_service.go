package services

import (
	"context"
	"log/slog"
	"sync"
	"tutor-chat/channel"
	"tutor-chat/domain"
)

type ISubscriber interface {
	SubscribeWithHistory(ctx context.Context, conversationID domain.ConversationID) (*channel.Subscription, []domain.Message, error)
}

type IChatService interface {
	Open(ctx context.Context, conversationID domain.ConversationID, viewerID domain.UserID) (*ChatSession, error)
}

// ChatService opens chat views. A view owns one subscription and keeps the
// read flags of the viewer up to date while it is open.
type ChatService struct {
	log        *slog.Logger
	messages   IMessageService
	reads      IReadTracker
	subscriber ISubscriber
}

func NewChatService(log *slog.Logger, messages IMessageService, reads IReadTracker, subscriber ISubscriber) *ChatService {
	return &ChatService{log: log, messages: messages, reads: reads, subscriber: subscriber}
}

func (s *ChatService) Open(ctx context.Context, conversationID domain.ConversationID, viewerID domain.UserID) (*ChatSession, error) {
	conversation, err := s.messages.GetConversation(ctx, conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	subscription, history, err := s.subscriber.SubscribeWithHistory(ctx, conversation.ID)
	if err != nil {
		cancel()
		return nil, err
	}

	if _, err = s.reads.MarkConversationRead(ctx, conversation.ID, viewerID); err != nil {
		s.log.Warn("Conversation not marked as read",
			"conversation_id", conversation.ID,
			"viewer_id", viewerID,
			"error", err)
	} else {
		history = markInboundRead(history, viewerID)
	}

	session := &ChatSession{
		log:          s.log,
		reads:        s.reads,
		conversation: conversation,
		viewerID:     viewerID,
		subscription: subscription,
		History:      history,
		out:          make(chan domain.Message),
		cancel:       cancel,
	}
	session.wg.Add(1)
	go session.relay(ctx)
	return session, nil
}

// ChatSession is an open chat view.
type ChatSession struct {
	log          *slog.Logger
	reads        IReadTracker
	conversation domain.Conversation
	viewerID     domain.UserID
	subscription *channel.Subscription
	out          chan domain.Message
	cancel       context.CancelFunc
	closeOnce    sync.Once
	wg           sync.WaitGroup

	// History is the conversation as it was when the view opened, with the
	// viewer's inbound messages marked read by the opening itself.
	History []domain.Message
}

func (s *ChatSession) Conversation() domain.Conversation {
	return s.conversation
}

// Messages delivers live messages not already in History.
// It is closed once the session is closed.
func (s *ChatSession) Messages() <-chan domain.Message {
	return s.out
}

// Close stops the view. Nothing is delivered once it returns.
func (s *ChatSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.subscription.Cancel()
		s.wg.Wait()
	})
}

func (s *ChatSession) relay(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.out)
	for message := range s.subscription.Messages() {
		if message.SenderID != s.viewerID {
			if err := s.reads.MarkSingleRead(ctx, message.ID); err != nil {
				s.log.Warn("Message not marked as read",
					"conversation_id", message.ConversationID,
					"message_id", message.ID,
					"error", err)
			} else {
				message.Read = true
			}
		}
		select {
		case s.out <- message:
		case <-ctx.Done():
			return
		}
	}
}

func markInboundRead(history []domain.Message, viewerID domain.UserID) []domain.Message {
	res := make([]domain.Message, len(history))
	for i, message := range history {
		if message.SenderID != viewerID {
			message.Read = true
		}
		res[i] = message
	}
	return res
}
