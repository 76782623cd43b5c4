package runtime

import (
	"slices"
	"sync"
	"tutor-chat/contract"
	"tutor-chat/domain"

	"github.com/samber/lo"
)

// Registry maps each conversation to the sinks of its open views.
type Registry struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{conversations: make(map[domain.ConversationID]map[string]contract.EventSink)}
}

// GetSinksForConversation returns the sinks of a conversation ordered by
// subscription id, or nil when nobody has it open.
func (r *Registry) GetSinksForConversation(conversationID domain.ConversationID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscriptions := r.conversations[conversationID]
	if len(subscriptions) == 0 {
		return nil
	}
	ids := lo.Keys(subscriptions)
	slices.Sort(ids)
	return lo.Map(ids, func(id string, _ int) contract.EventSink {
		return subscriptions[id]
	})
}

func (r *Registry) Subscribe(subscriptionID string, conversationID domain.ConversationID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscriptions, ok := r.conversations[conversationID]
	if !ok {
		subscriptions = make(map[string]contract.EventSink)
		r.conversations[conversationID] = subscriptions
	}
	subscriptions[subscriptionID] = sink
}

// Unsubscribe drops the conversation entry with its last subscription.
func (r *Registry) Unsubscribe(subscriptionID string, conversationID domain.ConversationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscriptions, ok := r.conversations[conversationID]
	if !ok {
		return
	}
	delete(subscriptions, subscriptionID)
	if len(subscriptions) == 0 {
		delete(r.conversations, conversationID)
	}
}
