// Package domain contains core concepts of the messaging system.
// This file defines Message events and related rules.
// Messages are append-only; only the read flag changes, and only from false to true.
package domain

import (
	"fmt"
	"strings"
	"time"
	"tutor-chat/errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID // unique identifier
	ConversationID ConversationID
	SenderID       UserID
	Content        string
	CreatedAt      time.Time
	Read           bool
}

// NormalizeContent trims surrounding whitespace and checks the result against maxLength runes.
func NormalizeContent(content string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errors.ErrEmptyContent
	}
	if n := utf8.RuneCountInString(trimmed); maxLength > 0 && n > maxLength {
		return "", fmt.Errorf("%w: %d runes, maximum is %d", errors.ErrContentTooLong, n, maxLength)
	}
	return trimmed, nil
}
