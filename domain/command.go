package domain

type Command interface {
	Target() ConversationID
}

type AppendMessageCommand struct {
	Conversation ConversationID
	SenderID     UserID
	Content      string
}

func (c AppendMessageCommand) Target() ConversationID {
	return c.Conversation
}

type ContactOrigin string

const (
	OriginDirect       ContactOrigin = "direct"
	OriginTutorListing ContactOrigin = "tutor_listing"
	OriginHelpRequest  ContactOrigin = "help_request"
)

// ContactCommand is issued when a user contacts another one from a tutor
// listing or a help request. Subject carries the listing or request title.
type ContactCommand struct {
	From    UserID        `validate:"required"`
	To      UserID        `validate:"required"`
	Origin  ContactOrigin `validate:"omitempty,oneof=direct tutor_listing help_request"`
	Subject string        `validate:"max=200"`
}

func ValidateContact(cmd ContactCommand) error {
	return validate.Struct(cmd)
}

type ContactResult struct {
	ConversationID   ConversationID
	Created          bool
	OtherParticipant UserDisplayInfo
}
