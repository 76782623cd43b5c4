package runtime

import (
	"context"
	"testing"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/domain/event"

	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s Sink) Consume(_ context.Context, _ event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Conversation_One_Subscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conversationID := domain.ConversationID("c1")
	sink := Sink{name: "alice"}

	// Given no subscription exists
	req.Empty(registry.conversations)
	req.Nil(registry.GetSinksForConversation(conversationID))

	// When a view subscribes to a conversation
	registry.Subscribe("s1", conversationID, sink)

	// Then
	req.Len(registry.conversations, 1)
	req.Equal([]contract.EventSink{sink}, registry.GetSinksForConversation(conversationID))
}

func TestRegistry_Sinks_Are_Ordered_By_Subscription(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conversationID := domain.ConversationID("c1")
	alice := Sink{name: "alice"}
	bob := Sink{name: "bob"}
	bobOnPhone := Sink{name: "bob on phone"}

	// When both participants open the conversation, bob twice
	registry.Subscribe("s3", conversationID, bobOnPhone)
	registry.Subscribe("s1", conversationID, alice)
	registry.Subscribe("s2", conversationID, bob)
	registry.Subscribe("s9", "c2", Sink{name: "carol"})

	// Then each view gets its own sink in a stable order
	req.Equal([]contract.EventSink{alice, bob, bobOnPhone}, registry.GetSinksForConversation(conversationID))
	req.Nil(registry.GetSinksForConversation("other"))
}

func TestRegistry_Unsubscribe_Last_Subscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conversationID := domain.ConversationID("c1")

	// Given a view subscribes to a conversation
	registry.Subscribe("s1", conversationID, Sink{})

	// When the view closes, twice
	registry.Unsubscribe("s1", conversationID)
	registry.Unsubscribe("s1", conversationID)

	// Then the conversation entry doesn't exist anymore
	req.Empty(registry.conversations)
	req.Nil(registry.GetSinksForConversation(conversationID))
}

func TestRegistry_Unsubscribe_One_Of_Multiple_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conversationID := domain.ConversationID("c1")
	bob := Sink{name: "bob"}

	registry.Subscribe("s1", conversationID, Sink{name: "alice"})
	registry.Subscribe("s2", conversationID, bob)

	// When one view closes
	registry.Unsubscribe("s1", conversationID)

	// Then only the other one is left
	req.Len(registry.conversations[conversationID], 1)
	req.Equal([]contract.EventSink{bob}, registry.GetSinksForConversation(conversationID))
}
