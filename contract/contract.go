//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	GetSinksForConversation(conversationID domain.ConversationID) []EventSink
	Subscribe(subscriptionID string, conversationID domain.ConversationID, sink EventSink)
	Unsubscribe(subscriptionID string, conversationID domain.ConversationID)
}

// IPublisher hands persisted events over to realtime delivery.
type IPublisher interface {
	Publish(ctx context.Context, e event.DomainEvent) error
}

// IDirectory is the read-only Directory Service holding profile display data.
type IDirectory interface {
	GetUserDisplayInfo(ctx context.Context, userID domain.UserID) (domain.UserDisplayInfo, error)
}
