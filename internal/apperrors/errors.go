package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for the error taxonomy. Handlers map these onto HTTP
// statuses with StatusFor; domain code wraps them with context via Wrap.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAuthentication   = errors.New("authentication failed")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrUpstream         = errors.New("upstream failure")
)

// Wrap attaches a human-readable message to a sentinel kind while keeping
// errors.Is matching intact.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message strips the sentinel prefix when present so responses carry only
// the human-readable part.
func Message(err error) string {
	for _, kind := range []error{
		ErrValidation, ErrAuthentication, ErrForbidden, ErrNotFound,
		ErrConflict, ErrPayloadTooLarge, ErrUnsupportedMedia, ErrUpstream,
	} {
		if errors.Is(err, kind) {
			msg := err.Error()
			prefix := kind.Error() + ": "
			if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
				return msg[len(prefix):]
			}
			return msg
		}
	}
	return "Internal server error"
}
