package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"tutor-chat/domain"
	"tutor-chat/errors"
	"tutor-chat/services"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	log        *slog.Logger
	contacts   services.IContactService
	aggregator services.IConversationAggregator
	messages   services.IMessageService
	reads      services.IReadTracker
	chat       services.IChatService
}

func NewHandlers(log *slog.Logger, contacts services.IContactService, aggregator services.IConversationAggregator,
	messages services.IMessageService, reads services.IReadTracker, chat services.IChatService) *Handlers {
	return &Handlers{
		log:        log,
		contacts:   contacts,
		aggregator: aggregator,
		messages:   messages,
		reads:      reads,
		chat:       chat,
	}
}

func (h *Handlers) Contact(c *gin.Context) {
	var body ContactRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		HandleError(c, errors.Join(errors.ErrInvalidContact, err))
		return
	}
	result, err := h.contacts.Contact(c.Request.Context(), domain.ContactCommand{
		From:    caller(c),
		To:      domain.UserID(body.UserID),
		Origin:  domain.ContactOrigin(body.Origin),
		Subject: body.Subject,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, ContactResponse{
		ConversationID:   string(result.ConversationID),
		Created:          result.Created,
		OtherParticipant: result.OtherParticipant,
	})
}

// ListConversations answers 200 even when some rows failed; those rows carry
// an error and the response is flagged partial.
func (h *Handlers) ListConversations(c *gin.Context) {
	summaries, err := h.aggregator.ListConversations(c.Request.Context(), caller(c))
	partial := errors.Is(err, errors.ErrPartialAggregation)
	if err != nil && !partial {
		HandleError(c, err)
		return
	}
	res := InboxResponse{Conversations: make([]SummaryResponse, 0, len(summaries)), Partial: partial}
	for _, s := range summaries {
		res.Conversations = append(res.Conversations, toSummaryResponse(s))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) ListMessages(c *gin.Context) {
	conversationID, ok := h.participantOf(c)
	if !ok {
		return
	}
	messages, err := h.messages.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponses(messages))
}

func (h *Handlers) AppendMessage(c *gin.Context) {
	var body AppendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		HandleError(c, errors.Join(errors.ErrMalformedRequest, err))
		return
	}
	message, err := h.messages.Append(c.Request.Context(), domain.AppendMessageCommand{
		Conversation: domain.ConversationID(c.Param("id")),
		SenderID:     caller(c),
		Content:      body.Content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(message))
}

func (h *Handlers) MarkRead(c *gin.Context) {
	conversationID, ok := h.participantOf(c)
	if !ok {
		return
	}
	marked, err := h.reads.MarkConversationRead(c.Request.Context(), conversationID, caller(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	unread, err := h.reads.UnreadCount(c.Request.Context(), conversationID, caller(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, UnreadResponse{Marked: marked, UnreadCount: unread})
}

func (h *Handlers) UnreadCount(c *gin.Context) {
	conversationID, ok := h.participantOf(c)
	if !ok {
		return
	}
	unread, err := h.reads.UnreadCount(c.Request.Context(), conversationID, caller(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, UnreadResponse{UnreadCount: unread})
}

// Stream opens a chat view as server-sent events: one "history" event, then
// one "message" event per live message until the client goes away.
func (h *Handlers) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	session, err := h.chat.Open(ctx, domain.ConversationID(c.Param("id")), caller(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer session.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("history", toMessageResponses(session.History))
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case message, ok := <-session.Messages():
			if !ok {
				return false
			}
			c.SSEvent("message", toMessageResponse(message))
			return true
		case <-ctx.Done():
			return false
		}
	})
	h.log.Debug("Chat view closed", "conversation_id", c.Param("id"), "viewer_id", caller(c))
}

func (h *Handlers) participantOf(c *gin.Context) (domain.ConversationID, bool) {
	conversation, err := h.messages.GetConversation(c.Request.Context(), domain.ConversationID(c.Param("id")), caller(c))
	if err != nil {
		HandleError(c, err)
		return "", false
	}
	return conversation.ID, true
}
