package auth

import (
	"fmt"
	"tutor-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateClaims makes sure the identity can be used as a user id.
func ValidateClaims(claims *Claims) error {
	if err := validate.Struct(claims); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return nil
}
