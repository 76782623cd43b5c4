package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/errors"
	"tutor-chat/observability"
	"tutor-chat/repositories"

	"golang.org/x/sync/errgroup"
)

type IConversationAggregator interface {
	ListConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error)
}

type AggregatorConfig struct {
	LookupTimeout time.Duration
	Concurrency   int
}

// ConversationAggregator builds the inbox of a user.
// Every row is assembled independently under its own deadline: a failing
// directory or store lookup marks that row as errored, the others still render.
type ConversationAggregator struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	reads         IReadTracker
	directory     contract.IDirectory
	metrics       *observability.Metrics
	config        AggregatorConfig
}

func NewConversationAggregator(log *slog.Logger, conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository, reads IReadTracker, directory contract.IDirectory,
	metrics *observability.Metrics, config AggregatorConfig) *ConversationAggregator {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &ConversationAggregator{
		log:           log,
		conversations: conversations,
		messages:      messages,
		reads:         reads,
		directory:     directory,
		metrics:       metrics,
		config:        config,
	}
}

// ListConversations returns all the summaries, errored ones included and sorted
// last. The error is a *errors.PartialAggregationError when some rows failed,
// or a plain error when the enumeration itself failed.
func (a *ConversationAggregator) ListConversations(ctx context.Context, userID domain.UserID) ([]domain.ConversationSummary, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	ids, err := a.conversations.ListConversationIDs(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(a.config.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			// Never fails the group, the error stays on the row
			summaries[i] = a.summarize(ctx, id, userID)
			return nil
		})
	}
	_ = g.Wait()

	sortSummaries(summaries)

	failed := make(map[string]error)
	for _, s := range summaries {
		if s.Err != nil {
			failed[string(s.ConversationID)] = s.Err
		}
	}
	if len(failed) > 0 {
		a.metrics.AggregationFailed(len(failed))
		a.log.Warn("Inbox partially assembled",
			"user_id", userID,
			"failed", len(failed),
			"total", len(summaries))
		return summaries, &errors.PartialAggregationError{Failed: failed}
	}
	return summaries, nil
}

func (a *ConversationAggregator) summarize(ctx context.Context, id domain.ConversationID, userID domain.UserID) domain.ConversationSummary {
	summary := domain.ConversationSummary{ConversationID: id}
	ctx, cancel := a.withLookupTimeout(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		summary.Err = a.fill(ctx, &summary, userID)
	}()

	select {
	case <-done:
		return summary
	case <-ctx.Done():
		// fill may still be writing, hand back a fresh row
		return domain.ConversationSummary{
			ConversationID: id,
			Err:            fmt.Errorf("summary lookup: %w", ctx.Err()),
		}
	}
}

func (a *ConversationAggregator) fill(ctx context.Context, summary *domain.ConversationSummary, userID domain.UserID) error {
	conversation, err := a.conversations.GetConversation(summary.ConversationID)
	if err != nil {
		return err
	}
	summary.CreatedAt = conversation.CreatedAt

	other, ok := conversation.Other(userID)
	if !ok {
		return errors.ErrNotAParticipant
	}
	info, err := a.directory.GetUserDisplayInfo(ctx, other)
	if err != nil {
		summary.OtherParticipant = domain.UserDisplayInfo{UserID: other}
		return err
	}
	summary.OtherParticipant = info

	last, err := a.messages.GetLastMessage(summary.ConversationID)
	if err != nil {
		return err
	}
	summary.LastMessage = last

	unread, err := a.reads.UnreadCount(ctx, summary.ConversationID, userID)
	if err != nil {
		return err
	}
	summary.UnreadCount = unread
	return nil
}

func (a *ConversationAggregator) withLookupTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.LookupTimeout)
}

// sortSummaries orders by last message descending, then conversations
// without messages by creation descending, then errored rows.
// Ties fall back to the conversation id.
func sortSummaries(summaries []domain.ConversationSummary) {
	rank := func(s domain.ConversationSummary) int {
		switch {
		case s.Err != nil:
			return 2
		case s.LastMessage == nil:
			return 1
		default:
			return 0
		}
	}
	activity := func(s domain.ConversationSummary) time.Time {
		if s.LastMessage != nil {
			return s.LastMessage.CreatedAt
		}
		return s.CreatedAt
	}
	slices.SortStableFunc(summaries, func(x, y domain.ConversationSummary) int {
		if c := cmp.Compare(rank(x), rank(y)); c != 0 {
			return c
		}
		if c := activity(y).Compare(activity(x)); c != 0 {
			return c
		}
		return cmp.Compare(x.ConversationID, y.ConversationID)
	})
}
