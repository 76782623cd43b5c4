package httpapi

import (
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError writes err with the status matching its kind.
func HandleError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatus(err), ErrorResponse{Error: err.Error()})
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID.String(),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
	}
}

func toMessageResponses(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) MessageResponse { return toMessageResponse(m) })
}

type SummaryResponse struct {
	ConversationID   string                 `json:"conversation_id"`
	CreatedAt        time.Time              `json:"created_at"`
	OtherParticipant domain.UserDisplayInfo `json:"other_participant"`
	LastMessage      *MessageResponse       `json:"last_message,omitempty"`
	UnreadCount      int                    `json:"unread_count"`
	Error            string                 `json:"error,omitempty"`
}

type InboxResponse struct {
	Conversations []SummaryResponse `json:"conversations"`
	Partial       bool              `json:"partial"`
}

func toSummaryResponse(s domain.ConversationSummary) SummaryResponse {
	res := SummaryResponse{
		ConversationID:   string(s.ConversationID),
		CreatedAt:        s.CreatedAt,
		OtherParticipant: s.OtherParticipant,
		UnreadCount:      s.UnreadCount,
	}
	if s.LastMessage != nil {
		last := toMessageResponse(*s.LastMessage)
		res.LastMessage = &last
	}
	if s.Err != nil {
		res.Error = s.Err.Error()
	}
	return res
}

type ContactRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Origin  string `json:"origin"`
	Subject string `json:"subject"`
}

type ContactResponse struct {
	ConversationID   string                 `json:"conversation_id"`
	Created          bool                   `json:"created"`
	OtherParticipant domain.UserDisplayInfo `json:"other_participant"`
}

type AppendRequest struct {
	Content string `json:"content"`
}

type UnreadResponse struct {
	Marked      int `json:"marked,omitempty"`
	UnreadCount int `json:"unread_count"`
}
