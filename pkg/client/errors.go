package client

import (
	"errors"
	"fmt"
)

var (
	// ErrBahnAPI is the base of every failure reported by the timetables API layer.
	ErrBahnAPI = errors.New("bahn api")

	ErrAuthentication = fmt.Errorf("%w: authentication failed", ErrBahnAPI)
	ErrRateLimit      = fmt.Errorf("%w: rate limit exceeded", ErrBahnAPI)
	ErrTimeout        = fmt.Errorf("%w: request timed out", ErrBahnAPI)
	ErrStationLookup  = fmt.Errorf("%w: station lookup failed", ErrBahnAPI)

	// ErrValidation reports invalid caller input; it is not an upstream failure.
	ErrValidation = errors.New("validation failed")
)

// StatusError is returned for HTTP responses with a status code of 400 or above.
type StatusError struct {
	StatusCode int
	Body       string

	kind error
}

func newStatusError(statusCode int, body []byte) *StatusError {
	kind := ErrBahnAPI
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = ErrAuthentication
	case statusCode == 429:
		kind = ErrRateLimit
	}

	if len(body) > 200 {
		body = body[:200]
	}

	return &StatusError{StatusCode: statusCode, Body: string(body), kind: kind}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: HTTP %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: HTTP %d - %s", e.kind, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}
