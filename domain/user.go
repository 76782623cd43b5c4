package domain

import (
	"fmt"
	"tutor-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UserID is the opaque identity issued by the Account Service.
type UserID string

// UserDisplayInfo is what the Directory Service knows about a user.
type UserDisplayInfo struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	AvatarRef   string `json:"avatar_ref"`
}

// ValidateUserID rejects identities that cannot be used inside storage keys.
func ValidateUserID(id UserID) error {
	if err := validate.Var(string(id), "required,max=128,excludes=:"); err != nil {
		return fmt.Errorf("%w %q: %v", errors.ErrInvalidUserID, id, err)
	}
	return nil
}
