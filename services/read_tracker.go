package services

import (
	"context"
	"log/slog"
	"tutor-chat/domain"
	"tutor-chat/repositories"

	"github.com/google/uuid"
)

type IReadTracker interface {
	MarkConversationRead(ctx context.Context, conversationID domain.ConversationID, viewerID domain.UserID) (int, error)
	MarkSingleRead(ctx context.Context, messageID uuid.UUID) error
	UnreadCount(ctx context.Context, conversationID domain.ConversationID, viewerID domain.UserID) (int, error)
}

// ReadTracker owns the read flag of messages. The flag only goes from false
// to true, so concurrent or repeated calls converge to the same state.
type ReadTracker struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
}

func NewReadTracker(log *slog.Logger, messages repositories.IMessageRepository) *ReadTracker {
	return &ReadTracker{log: log, messages: messages}
}

// MarkConversationRead marks what the other participant sent as read and
// returns how many messages changed.
func (t *ReadTracker) MarkConversationRead(ctx context.Context, conversationID domain.ConversationID,
	viewerID domain.UserID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	changed, err := t.messages.MarkConversationRead(conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		t.log.Debug("Conversation read",
			"conversation_id", conversationID,
			"viewer_id", viewerID,
			"count", changed)
	}
	return changed, nil
}

// MarkSingleRead avoids rescanning the conversation for a message that just arrived.
func (t *ReadTracker) MarkSingleRead(ctx context.Context, messageID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.messages.MarkRead([]uuid.UUID{messageID})
	return err
}

func (t *ReadTracker) UnreadCount(ctx context.Context, conversationID domain.ConversationID,
	viewerID domain.UserID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.messages.CountUnread(conversationID, viewerID)
}
