package channel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
	"tutor-chat/errors"
	"tutor-chat/observability"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// MessageSource is the part of the message store a subscription reads from.
type MessageSource interface {
	GetMessages(conversationID domain.ConversationID) ([]domain.Message, error)
	GetMessagesAfter(conversationID domain.ConversationID, after time.Time) ([]domain.Message, error)
}

type Config struct {
	BufferSize  int // live events waiting for the reader
	DedupWindow int // message ids remembered for de-duplication
}

// MessageChannel opens subscriptions on conversations.
type MessageChannel struct {
	log      *slog.Logger
	registry contract.IRegistry
	source   MessageSource
	config   Config
	metrics  *observability.Metrics
}

func NewMessageChannel(log *slog.Logger, registry contract.IRegistry, source MessageSource,
	config Config, metrics *observability.Metrics) *MessageChannel {
	return &MessageChannel{log: log, registry: registry, source: source, config: config, metrics: metrics}
}

// Subscribe starts streaming the messages appended to a conversation from now on.
func (c *MessageChannel) Subscribe(ctx context.Context, conversationID domain.ConversationID) (*Subscription, error) {
	sub, err := c.open(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	sub.start(nil)
	return sub, nil
}

// SubscribeWithHistory registers the subscription before reading the history,
// so no message can fall between the two. Live events overlapping the history
// are dropped by id.
func (c *MessageChannel) SubscribeWithHistory(ctx context.Context, conversationID domain.ConversationID) (*Subscription, []domain.Message, error) {
	sub, err := c.open(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	history, err := c.source.GetMessages(conversationID)
	if err != nil {
		sub.Cancel()
		return nil, nil, err
	}
	sub.start(history)
	return sub, history, nil
}

func (c *MessageChannel) open(ctx context.Context, conversationID domain.ConversationID) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen, err := lru.New(max(c.config.DedupWindow, 1))
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		id:             uuid.NewString(),
		conversationID: conversationID,
		log:            c.log,
		registry:       c.registry,
		source:         c.source,
		metrics:        c.metrics,
		seen:           seen,
		inbox:          make(chan domain.Message, max(c.config.BufferSize, 1)),
		lag:            make(chan struct{}, 1),
		out:            make(chan domain.Message),
		done:           make(chan struct{}),
	}
	c.registry.Subscribe(sub.id, conversationID, sub)
	c.metrics.SubscriptionOpened()

	// Auto-cleanup on context cancellation
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Subscription is one open view on a conversation.
type Subscription struct {
	id             string
	conversationID domain.ConversationID
	log            *slog.Logger
	registry       contract.IRegistry
	source         MessageSource
	metrics        *observability.Metrics

	inbox  chan domain.Message
	lag    chan struct{}
	lagged atomic.Bool
	out    chan domain.Message
	done   chan struct{}

	// owned by the pump goroutine once started
	seen   *lru.Cache
	lastAt time.Time

	startOnce  sync.Once
	cancelOnce sync.Once
	wg         sync.WaitGroup
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) ConversationID() domain.ConversationID {
	return s.conversationID
}

// Messages is closed once the subscription is cancelled.
func (s *Subscription) Messages() <-chan domain.Message {
	return s.out
}

// Consume is called by the fanout. It never blocks: when the buffer is full
// the subscription is flagged as lagging and will replay from the store.
func (s *Subscription) Consume(_ context.Context, e event.DomainEvent) error {
	appended, ok := e.(event.MessageAppended)
	if !ok {
		return nil
	}
	select {
	case <-s.done:
		return errors.ErrSubscriptionClosed
	default:
	}
	select {
	case s.inbox <- appended.Message:
		return nil
	default:
		s.Resync()
		return errors.ErrSlowConsumer
	}
}

// Resync flags the subscription as lagging: the pump reads everything newer
// than the last delivered message from the store. It never blocks.
func (s *Subscription) Resync() {
	s.lagged.Store(true)
	select {
	case s.lag <- struct{}{}:
	default:
	}
}

// Cancel stops delivery and releases the subscription. Once it returns no
// further message is delivered. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.registry.Unsubscribe(s.id, s.conversationID)
		close(s.done)
		s.metrics.SubscriptionClosed()
	})
	// Never started: nobody else will close out
	s.startOnce.Do(func() { close(s.out) })
	s.wg.Wait()
}

func (s *Subscription) start(history []domain.Message) {
	s.startOnce.Do(func() {
		for _, message := range history {
			s.remember(message)
		}
		s.wg.Add(1)
		go s.pump()
	})
}

func (s *Subscription) pump() {
	defer s.wg.Done()
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case message := <-s.inbox:
			if !s.deliver(message) {
				return
			}
		case <-s.lag:
			if !s.replay() {
				return
			}
		}
	}
}

// replay reads everything newer than the last delivered message. Buffered
// events that are also part of the replay are dropped later by id.
func (s *Subscription) replay() bool {
	if !s.lagged.Swap(false) {
		return true
	}
	s.metrics.SubscriptionReplayed()
	messages, err := s.source.GetMessagesAfter(s.conversationID, s.lastAt)
	if err != nil {
		s.log.Warn("Subscription replay failed",
			"conversation_id", s.conversationID,
			"subscription_id", s.id,
			"error", err)
		return true
	}
	s.log.Debug("Subscription replayed from store",
		"conversation_id", s.conversationID,
		"count", len(messages))
	for _, message := range messages {
		if !s.deliver(message) {
			return false
		}
	}
	return true
}

// deliver drops messages already seen. Timestamps are strictly increasing per
// conversation and events are published in append order, so anything not newer
// than the last delivered message is a duplicate even when its id left the
// dedup window.
func (s *Subscription) deliver(message domain.Message) bool {
	if s.seen.Contains(message.ID) || !message.CreatedAt.After(s.lastAt) {
		return true
	}
	select {
	case s.out <- message:
		s.remember(message)
		return true
	case <-s.done:
		return false
	}
}

func (s *Subscription) remember(message domain.Message) {
	s.seen.Add(message.ID, struct{}{})
	if message.CreatedAt.After(s.lastAt) {
		s.lastAt = message.CreatedAt
	}
}
