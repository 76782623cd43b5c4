package domain

import "time"

// ConversationSummary is one row of a user's inbox.
// Err is set when the row could not be fully assembled.
type ConversationSummary struct {
	ConversationID   ConversationID
	CreatedAt        time.Time
	OtherParticipant UserDisplayInfo
	LastMessage      *Message
	UnreadCount      int
	Err              error
}
