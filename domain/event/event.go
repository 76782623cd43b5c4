package event

import (
	"tutor-chat/domain"
)

type DomainEvent interface {
	Conversation() domain.ConversationID
}

// MessageAppended is published once a message has been persisted.
type MessageAppended struct {
	Message domain.Message
}

func (m MessageAppended) Conversation() domain.ConversationID {
	return m.Message.ConversationID
}
