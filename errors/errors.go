package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidParticipants  = fmt.Errorf("a conversation needs two distinct participants")
	ErrInvalidUserID        = fmt.Errorf("invalid user id")
	ErrNotAParticipant      = fmt.Errorf("user is not a participant of the conversation")
	ErrEmptyContent         = fmt.Errorf("message content is empty")
	ErrContentTooLong       = fmt.Errorf("message content is too long")
	ErrStoreUnavailable     = fmt.Errorf("store unavailable")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrConversationExists   = fmt.Errorf("a conversation already exists for this pair")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrPartialAggregation   = fmt.Errorf("some conversation summaries could not be built")
	ErrSubscriptionClosed   = fmt.Errorf("subscription closed")
	ErrSlowConsumer         = fmt.Errorf("subscriber buffer full")
	ErrUnauthenticated      = fmt.Errorf("unauthenticated")
	ErrUnknownUser          = fmt.Errorf("unknown user")
	ErrDirectoryUnavailable = fmt.Errorf("directory service unavailable")
	ErrInvalidContact       = fmt.Errorf("invalid contact request")
	ErrMalformedRequest     = fmt.Errorf("malformed request body")
)

// Is, As and Join forward to the standard library so callers only import this package.
func Is(err, target error) bool     { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func Join(errs ...error) error      { return errors.Join(errs...) }

// Unavailable marks a storage failure as transient.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// PartialAggregationError reports the conversations whose summary could not be built
// while the rest of the list was assembled.
type PartialAggregationError struct {
	Failed map[string]error
}

func (e *PartialAggregationError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Failed[id]))
	}
	return fmt.Sprintf("%v (%s)", ErrPartialAggregation, strings.Join(parts, "; "))
}

func (e *PartialAggregationError) Is(target error) bool {
	return target == ErrPartialAggregation
}
