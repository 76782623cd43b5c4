package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialAggregationError_Is(t *testing.T) {
	req := require.New(t)

	// Given two conversations failed to aggregate
	err := error(&PartialAggregationError{Failed: map[string]error{
		"b": ErrDirectoryUnavailable,
		"a": ErrStoreUnavailable,
	}})

	// Then it is recognised as a partial failure
	req.True(Is(err, ErrPartialAggregation))
	req.False(Is(err, ErrStoreUnavailable))
	// And failed ids are listed in a stable order
	req.Contains(err.Error(), "a: store unavailable; b: directory service unavailable")
}

func TestUnavailable_WrapsCause(t *testing.T) {
	req := require.New(t)
	cause := fmt.Errorf("disk on fire")

	err := Unavailable(cause)

	req.True(Is(err, ErrStoreUnavailable))
	req.Contains(err.Error(), "disk on fire")
	req.NoError(Unavailable(nil))
}

func TestHTTPStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusBadRequest, HTTPStatus(ErrInvalidParticipants))
	req.Equal(http.StatusBadRequest, HTTPStatus(fmt.Errorf("wrap: %w", ErrEmptyContent)))
	req.Equal(http.StatusBadRequest, HTTPStatus(Join(ErrMalformedRequest, fmt.Errorf("unexpected EOF"))))
	req.Equal(http.StatusRequestEntityTooLarge, HTTPStatus(ErrContentTooLong))
	req.Equal(http.StatusForbidden, HTTPStatus(ErrNotAParticipant))
	req.Equal(http.StatusNotFound, HTTPStatus(ErrConversationNotFound))
	req.Equal(http.StatusServiceUnavailable, HTTPStatus(Unavailable(fmt.Errorf("io"))))
	req.Equal(http.StatusUnauthorized, HTTPStatus(ErrUnauthenticated))
	req.Equal(http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
