package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies upstream failures.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindTransport   ErrorKind = "transport"
	KindStatus      ErrorKind = "status"
	KindDecode      ErrorKind = "decode"
	KindCircuitOpen ErrorKind = "circuit_open"
)

// Error is returned by every failed upstream call.
type Error struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("TMDB %s returned status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("TMDB %s %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// upstreamFault reports whether the error says something about TMDB's health,
// as opposed to a bad request on our side.
func (e *Error) upstreamFault() bool {
	if e.Kind == KindStatus {
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	}
	return e.Kind != KindCircuitOpen
}

// IsNotFound reports whether err is a TMDB 404.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindStatus && e.StatusCode == http.StatusNotFound
}

func asError(endpoint string, kind ErrorKind, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Endpoint: endpoint, Err: err}
}
