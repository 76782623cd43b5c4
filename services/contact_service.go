package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"tutor-chat/contract"
	"tutor-chat/domain"
	"tutor-chat/errors"
)

const (
	DefaultTutorGreeting   = "Hi! I'm interested in your tutoring."
	DefaultRequestGreeting = "Hi! I'm contacting you about your request: %q"
)

type IContactService interface {
	Contact(ctx context.Context, cmd domain.ContactCommand) (domain.ContactResult, error)
}

type Greetings struct {
	Tutor   string
	Request string
}

// ContactService opens a conversation from a tutor listing or a help request.
type ContactService struct {
	log       *slog.Logger
	resolver  IConversationResolver
	messages  IMessageService
	directory contract.IDirectory
	greetings Greetings
}

func NewContactService(log *slog.Logger, resolver IConversationResolver, messages IMessageService,
	directory contract.IDirectory, greetings Greetings) *ContactService {
	return &ContactService{
		log:       log,
		resolver:  resolver,
		messages:  messages,
		directory: directory,
		greetings: greetings,
	}
}

// Contact resolves the conversation between both users. The opening message
// is only sent by the call that created the conversation, contacting the same
// user again from another entry point lands in the existing thread.
func (s *ContactService) Contact(ctx context.Context, cmd domain.ContactCommand) (domain.ContactResult, error) {
	if err := domain.ValidateContact(cmd); err != nil {
		return domain.ContactResult{}, errors.Join(errors.ErrInvalidContact, err)
	}
	resolution, err := s.resolver.Resolve(ctx, cmd.From, cmd.To)
	if err != nil {
		return domain.ContactResult{}, err
	}

	if resolution.Created {
		if greeting := s.greeting(cmd); greeting != "" {
			_, err = s.messages.Append(ctx, domain.AppendMessageCommand{
				Conversation: resolution.ConversationID,
				SenderID:     cmd.From,
				Content:      greeting,
			})
			if err != nil {
				s.log.Warn("Opening message not sent",
					"conversation_id", resolution.ConversationID,
					"origin", cmd.Origin,
					"error", err)
			}
		}
	}

	other, err := s.directory.GetUserDisplayInfo(ctx, cmd.To)
	if err != nil {
		s.log.Warn("Display info unavailable", "user_id", cmd.To, "error", err)
		other = domain.UserDisplayInfo{UserID: cmd.To}
	}
	return domain.ContactResult{
		ConversationID:   resolution.ConversationID,
		Created:          resolution.Created,
		OtherParticipant: other,
	}, nil
}

func (s *ContactService) greeting(cmd domain.ContactCommand) string {
	switch cmd.Origin {
	case domain.OriginTutorListing:
		return s.greetings.Tutor
	case domain.OriginHelpRequest:
		if s.greetings.Request == "" {
			return ""
		}
		subject := strings.TrimSpace(cmd.Subject)
		if !strings.Contains(s.greetings.Request, "%") {
			return s.greetings.Request
		}
		return fmt.Sprintf(s.greetings.Request, subject)
	default:
		return ""
	}
}
