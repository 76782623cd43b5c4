// Package domain contains core concepts of the messaging system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant binds a user to a conversation. It is created together with the
// conversation and never changes afterwards.
type Participant struct {
	ConversationID ConversationID
	UserID         UserID
}
