package services

import (
	"context"
	"log/slog"
	"slices"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"
	"tutor-chat/observability"
	"tutor-chat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const maxCreateAttempts = 3

type IConversationResolver interface {
	ResolveConversation(ctx context.Context, userA, userB domain.UserID) (domain.ConversationID, error)
	Resolve(ctx context.Context, userA, userB domain.UserID) (Resolution, error)
}

type Resolution struct {
	ConversationID domain.ConversationID
	Created        bool
}

type ConversationResolver struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewConversationResolver(log *slog.Logger, conversations repositories.IConversationRepository,
	metrics *observability.Metrics) *ConversationResolver {
	return &ConversationResolver{log: log, conversations: conversations, metrics: metrics, now: time.Now}
}

// ResolveConversation returns the conversation between two users, creating it
// when they never talked before.
func (r *ConversationResolver) ResolveConversation(ctx context.Context, userA, userB domain.UserID) (domain.ConversationID, error) {
	resolution, err := r.Resolve(ctx, userA, userB)
	return resolution.ConversationID, err
}

// Resolve looks the pair up first. Creation is guarded by the unique pair key
// of the store: when it loses against a concurrent creation, the winner is
// read back instead of creating a duplicate.
func (r *ConversationResolver) Resolve(ctx context.Context, userA, userB domain.UserID) (Resolution, error) {
	if err := domain.ValidateUserID(userA); err != nil {
		return Resolution{}, err
	}
	if err := domain.ValidateUserID(userB); err != nil {
		return Resolution{}, err
	}
	if userA == userB {
		return Resolution{}, errors.ErrInvalidParticipants
	}

	id, found, err := r.lookup(userA, userB)
	if err != nil || found {
		return Resolution{ConversationID: id}, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return Resolution{}, err
		}
		conversation, err := domain.NewConversation(domain.ConversationID(uuid.NewString()), userA, userB, r.now().UTC())
		if err != nil {
			return Resolution{}, err
		}
		err = r.conversations.CreateConversation(conversation)
		switch {
		case err == nil:
			r.metrics.ConversationCreated()
			r.log.Info("Conversation created",
				"conversation_id", conversation.ID,
				"participants", conversation.PairKey().String())
			return Resolution{ConversationID: conversation.ID, Created: true}, nil
		case errors.Is(err, errors.ErrConversationExists):
			r.metrics.ResolverConflict()
			id, err = r.conversations.FindByPair(conversation.PairKey())
			if err == nil {
				r.log.Debug("Conversation created concurrently, reusing it", "conversation_id", id)
				return Resolution{ConversationID: id}, nil
			}
			if !errors.Is(err, errors.ErrConversationNotFound) {
				return Resolution{}, err
			}
			// The competing creation did not commit either, try again
		default:
			return Resolution{}, err
		}
	}
	return Resolution{}, errors.Unavailable(errors.ErrConversationExists)
}

// lookup intersects the conversations of both users. The smallest id wins if
// the store ever holds more than one, to keep the answer reproducible.
func (r *ConversationResolver) lookup(userA, userB domain.UserID) (domain.ConversationID, bool, error) {
	idsA, err := r.conversations.ListConversationIDs(userA)
	if err != nil {
		return "", false, err
	}
	idsB, err := r.conversations.ListConversationIDs(userB)
	if err != nil {
		return "", false, err
	}
	common := lo.Intersect(idsA, idsB)
	if len(common) == 0 {
		return "", false, nil
	}
	if len(common) > 1 {
		r.log.Warn("Duplicate conversations for the same pair",
			"participants", domain.NewPairKey(userA, userB).String(),
			"count", len(common))
	}
	return slices.Min(common), true, nil
}
