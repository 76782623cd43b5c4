package workers

import (
	"context"
	"log/slog"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain/event"
)

// EventFanout delivers persisted domain events to the sinks subscribed to the
// event's conversation.
//
// Events are taken from a single channel and each event is handed to its sinks
// before the next one is read, so the delivery order of a conversation matches
// its append order. A sink that does not accept an event within sinkTimeout is
// skipped; sinks are expected to recover missed events from the store.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink for each subscription of the conversation
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.registry.GetSinksForConversation(evt.Conversation()) {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Debug("Sink did not accept event",
				"conversation_id", evt.Conversation(),
				"error", err)
		}
		cancel()
	}
}
