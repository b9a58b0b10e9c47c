package common

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Markers for the error taxonomy. Wrap an error with one of the constructors
// below and classify it later with errors.Is.
var (
	ErrClientInput         = errors.New("invalid request")
	ErrAuthRequired        = errors.New("authentication required")
	ErrStoreQuery          = errors.New("store query failed")
	ErrConfiguration       = errors.New("server misconfigured")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ClientInput reports a missing or invalid request parameter.
func ClientInput(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrClientInput)
}

func AuthRequired() error {
	return errors.Mark(errors.New("authentication required"), ErrAuthRequired)
}

// StoreQuery marks err as a persistence failure. The message is left as is so
// it can be surfaced to the caller.
func StoreQuery(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrStoreQuery)
}

func Configuration(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func UpstreamUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrUpstreamUnavailable)
}

// StatusCode maps err onto the HTTP status for its taxonomy class.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrClientInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
