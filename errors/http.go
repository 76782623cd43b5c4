package errors

import "net/http"

// HTTPStatus maps the error taxonomy onto the status codes of the HTTP surface.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case Is(err, ErrInvalidParticipants), Is(err, ErrInvalidUserID),
		Is(err, ErrEmptyContent), Is(err, ErrInvalidContact), Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case Is(err, ErrContentTooLong):
		return http.StatusRequestEntityTooLarge
	case Is(err, ErrNotAParticipant):
		return http.StatusForbidden
	case Is(err, ErrConversationNotFound), Is(err, ErrMessageNotFound), Is(err, ErrUnknownUser):
		return http.StatusNotFound
	case Is(err, ErrConversationExists):
		return http.StatusConflict
	case Is(err, ErrStoreUnavailable), Is(err, ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
