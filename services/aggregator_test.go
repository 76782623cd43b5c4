package services

import (
	"context"
	"fmt"
	"testing"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"
	"tutor-chat/mocks"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func displayInfo(userID domain.UserID) domain.UserDisplayInfo {
	return domain.UserDisplayInfo{
		UserID:      userID,
		DisplayName: "Display " + string(userID),
		Handle:      "@" + string(userID),
	}
}

// inbox creates alice's conversations with bob, carol, dave and erin.
// carol then bob get a message, dave and erin stay empty with erin created last.
func inbox(t *testing.T, f fixture) map[domain.UserID]domain.ConversationID {
	t.Helper()
	resolver := f.resolver()
	at := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	ids := make(map[domain.UserID]domain.ConversationID)
	for i, other := range []domain.UserID{"bob", "carol", "dave", "erin"} {
		resolver.now = func() time.Time { return at.Add(time.Duration(i) * time.Hour) }
		id, err := resolver.ResolveConversation(context.Background(), "alice", other)
		require.NoError(t, err)
		ids[other] = id
	}
	f.send(t, ids["carol"], "carol", "question about integrals")
	f.send(t, ids["bob"], "bob", "see you tomorrow")
	f.send(t, ids["bob"], "alice", "sure")
	return ids
}

func newAggregator(f fixture, directory *mocks.MockIDirectory, timeout time.Duration) *ConversationAggregator {
	return NewConversationAggregator(f.log, f.conversations, f.messages, NewReadTracker(f.log, f.messages),
		directory, nil, AggregatorConfig{LookupTimeout: timeout, Concurrency: 2})
}

func TestConversationAggregator_ListConversations(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	ids := inbox(t, f)
	directory := mocks.NewMockIDirectory(ctrl)
	directory.EXPECT().
		GetUserDisplayInfo(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
			return displayInfo(userID), nil
		}).
		Times(4)

	// When listing alice's inbox
	summaries, err := newAggregator(f, directory, time.Second).ListConversations(context.Background(), "alice")

	// Then active conversations come first, then empty ones newest first
	req.NoError(err)
	req.Equal([]domain.ConversationID{ids["bob"], ids["carol"], ids["erin"], ids["dave"]},
		lo.Map(summaries, func(s domain.ConversationSummary, _ int) domain.ConversationID { return s.ConversationID }))

	bob := summaries[0]
	req.Equal(displayInfo("bob"), bob.OtherParticipant)
	req.NotNil(bob.LastMessage)
	req.Equal("sure", bob.LastMessage.Content)
	req.Equal(1, bob.UnreadCount)

	carol := summaries[1]
	req.Equal(1, carol.UnreadCount)
	req.Equal("question about integrals", carol.LastMessage.Content)

	for _, empty := range summaries[2:] {
		req.Nil(empty.LastMessage)
		req.Zero(empty.UnreadCount)
		req.NoError(empty.Err)
	}
	req.True(summaries[2].CreatedAt.After(summaries[3].CreatedAt))
}

func TestConversationAggregator_Partial_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	ids := inbox(t, f)
	directory := mocks.NewMockIDirectory(ctrl)

	// Given a directory failing on carol and hanging on dave
	directory.EXPECT().
		GetUserDisplayInfo(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
			switch userID {
			case "carol":
				return domain.UserDisplayInfo{}, fmt.Errorf("%w: boom", errors.ErrDirectoryUnavailable)
			case "dave":
				<-ctx.Done()
				return domain.UserDisplayInfo{}, ctx.Err()
			default:
				return displayInfo(userID), nil
			}
		}).
		Times(4)

	// When listing the inbox
	summaries, err := newAggregator(f, directory, 50*time.Millisecond).ListConversations(context.Background(), "alice")

	// Then the healthy rows still render and the failing ones are flagged last
	req.ErrorIs(err, errors.ErrPartialAggregation)
	var partial *errors.PartialAggregationError
	req.True(errors.As(err, &partial))
	req.Len(partial.Failed, 2)
	req.ErrorIs(partial.Failed[string(ids["carol"])], errors.ErrDirectoryUnavailable)
	req.ErrorIs(partial.Failed[string(ids["dave"])], context.DeadlineExceeded)

	req.Len(summaries, 4)
	req.Equal(ids["bob"], summaries[0].ConversationID)
	req.Equal(ids["erin"], summaries[1].ConversationID)
	req.NoError(summaries[0].Err)
	req.NoError(summaries[1].Err)
	req.Error(summaries[2].Err)
	req.Error(summaries[3].Err)
}

func TestConversationAggregator_Empty_Inbox(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	f := newFixture(t)

	summaries, err := newAggregator(f, mocks.NewMockIDirectory(ctrl), time.Second).
		ListConversations(context.Background(), "nobody")
	req.NoError(err)
	req.Empty(summaries)

	_, err = newAggregator(f, mocks.NewMockIDirectory(ctrl), time.Second).
		ListConversations(context.Background(), "")
	req.ErrorIs(err, errors.ErrInvalidUserID)
}
