package response

import "errors"

var (
	// ErrConstruction is returned when a response is built from an
	// incompatible combination of body, URL and encoding.
	ErrConstruction = errors.New("invalid response construction")

	// ErrUnavailable is returned when request context is asked for on a
	// response that is not tied to any request.
	ErrUnavailable = errors.New("not available")
)
