package client

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxDetails is how much of an upstream error body is passed on to callers
const maxDetails = 500

var (
	// ErrHostNotConfigured is returned by every call when no Augur host is set
	ErrHostNotConfigured = errors.New("LUNA_AUGUR_HOST not configured")

	// ErrUnreachable is returned when the request never got a response
	ErrUnreachable = errors.New("unable to reach Augur backend")

	// ErrUnknownCollection is returned by List for a collection it cannot load
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnexpectedShape is returned when a list response holds no array
	ErrUnexpectedShape = errors.New("response is not a list")
)

// UpstreamError is a non-2xx answer from Augur
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with %d", e.StatusCode)
}

// Details returns at most the first 500 characters of the response body
func (e *UpstreamError) Details() string {
	if utf8.RuneCountInString(e.Body) <= maxDetails {
		return e.Body
	}
	runes := []rune(e.Body)
	return string(runes[:maxDetails])
}
