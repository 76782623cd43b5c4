// Package domain contains core concepts of the messaging system.
// This file defines two-party Conversations and their invariants.
package domain

import (
	"time"
	"tutor-chat/errors"
)

type ConversationID string

// Conversation is a two-party thread. Participants are stored in sorted order
// so that the pair can be compared and indexed regardless of who initiated it.
type Conversation struct {
	ID           ConversationID
	Participants [2]UserID
	CreatedAt    time.Time
}

func NewConversation(id ConversationID, userA, userB UserID, createdAt time.Time) (Conversation, error) {
	if err := ValidateUserID(userA); err != nil {
		return Conversation{}, err
	}
	if err := ValidateUserID(userB); err != nil {
		return Conversation{}, err
	}
	if userA == userB {
		return Conversation{}, errors.ErrInvalidParticipants
	}
	pair := NewPairKey(userA, userB)
	return Conversation{
		ID:           id,
		Participants: [2]UserID{pair.Low, pair.High},
		CreatedAt:    createdAt,
	}, nil
}

func (c Conversation) Has(userID UserID) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID UserID) (UserID, bool) {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	default:
		return "", false
	}
}

func (c Conversation) PairKey() PairKey {
	return NewPairKey(c.Participants[0], c.Participants[1])
}

func (c Conversation) ParticipantRows() []Participant {
	return []Participant{
		{ConversationID: c.ID, UserID: c.Participants[0]},
		{ConversationID: c.ID, UserID: c.Participants[1]},
	}
}

// PairKey is the unordered pair of users normalised as (smallest, largest).
type PairKey struct {
	Low  UserID
	High UserID
}

func NewPairKey(a, b UserID) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

func (p PairKey) String() string {
	return string(p.Low) + ":" + string(p.High)
}
