package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadTracker_Unread_Counts_Per_Viewer(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	tracker := NewReadTracker(f.log, f.messages)
	ctx := context.Background()

	// Given "hello" from alice and "hi back" from bob
	conversationID := f.conversation(t, "alice", "bob")
	f.send(t, conversationID, "alice", "hello")
	f.send(t, conversationID, "bob", "hi back")

	count, err := tracker.UnreadCount(ctx, conversationID, "bob")
	req.NoError(err)
	req.Equal(1, count)

	// When bob opens the conversation
	changed, err := tracker.MarkConversationRead(ctx, conversationID, "bob")
	req.NoError(err)
	req.Equal(1, changed)

	// Then only alice still has something to read
	count, err = tracker.UnreadCount(ctx, conversationID, "bob")
	req.NoError(err)
	req.Zero(count)
	count, err = tracker.UnreadCount(ctx, conversationID, "alice")
	req.NoError(err)
	req.Equal(1, count)

	history, err := f.messages.GetMessages(conversationID)
	req.NoError(err)
	req.True(history[0].Read)
	req.False(history[1].Read)

	// And doing it again changes nothing
	changed, err = tracker.MarkConversationRead(ctx, conversationID, "bob")
	req.NoError(err)
	req.Zero(changed)
}

func TestReadTracker_MarkSingleRead(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	tracker := NewReadTracker(f.log, f.messages)
	ctx := context.Background()
	conversationID := f.conversation(t, "alice", "bob")
	first := f.send(t, conversationID, "alice", "first")
	f.send(t, conversationID, "alice", "second")

	req.NoError(tracker.MarkSingleRead(ctx, first.ID))
	req.NoError(tracker.MarkSingleRead(ctx, first.ID))

	count, err := tracker.UnreadCount(ctx, conversationID, "bob")
	req.NoError(err)
	req.Equal(1, count)
}

func TestReadTracker_Honours_Cancelled_Context(t *testing.T) {
	f := newFixture(t)
	tracker := NewReadTracker(f.log, f.messages)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tracker.UnreadCount(ctx, "c1", "bob")
	require.ErrorIs(t, err, context.Canceled)
}
