// Package runtime handles realtime propagation of persisted events.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
	"tutor-chat/observability"
	"tutor-chat/runtime/workers"
)

// Orchestrator is the publish side of the message channel. Producers publish
// events once they are persisted; a supervised fanout worker routes them to the
// subscriptions registered for their conversation.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    contract.IRegistry
	events      chan event.DomainEvent
	sinkTimeout time.Duration
	metrics     *observability.Metrics
	sampleEvery time.Duration
	started     bool
	done        chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		events:      make(chan event.DomainEvent, bufferSize),
		sinkTimeout: sinkTimeout,
		done:        make(chan struct{}),
	}
}

// Resyncer is a sink able to catch up from the store on its own.
type Resyncer interface {
	Resync()
}

// Publish enqueues an event for delivery. It blocks while the queue is full
// rather than dropping, and gives up when ctx is done. An event that never
// reached the queue is recovered by asking the conversation's sinks to resync.
func (o *Orchestrator) Publish(ctx context.Context, e event.DomainEvent) error {
	select {
	case o.events <- e:
		return nil
	case <-ctx.Done():
		resynced := o.resync(e.Conversation())
		o.log.Warn("Event not queued, sinks resynced from store",
			"conversation_id", e.Conversation(),
			"sinks", resynced,
			"error", ctx.Err())
		return fmt.Errorf("publish for conversation %s: %w", e.Conversation(), ctx.Err())
	}
}

func (o *Orchestrator) resync(conversationID domain.ConversationID) int {
	count := 0
	for _, sink := range o.registry.GetSinksForConversation(conversationID) {
		if r, ok := sink.(Resyncer); ok {
			r.Resync()
			count++
		}
	}
	return count
}

// MonitorQueue samples the event queue into metrics once started.
func (o *Orchestrator) MonitorQueue(metrics *observability.Metrics, interval time.Duration) *Orchestrator {
	o.metrics = metrics
	o.sampleEvery = interval
	return o
}

func (o *Orchestrator) Registry() contract.IRegistry {
	return o.registry
}

// Start registers the fanout worker and runs the supervisor in the background.
// It returns immediately; Stop or the cancellation of ctx shuts everything down.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true

	o.supervisor.Add(workers.NewEventFanout(o.log, o.registry, o.events, o.sinkTimeout))
	if o.metrics != nil && o.sampleEvery > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log,
			[]workers.NamedChannel{{Name: "events", Channel: o.events}}, o.metrics, o.sampleEvery))
	}

	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(o.done)
		o.supervisor.Run(ctx)
	}()
	return nil
}

// Stop initiates a graceful shutdown and waits for the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	started := o.started
	o.mu.Unlock()
	if started {
		<-o.done
	}
	o.log.Debug("Orchestrator stopped")
}
