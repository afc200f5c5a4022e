package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRateLimited       = errors.New("rate limited")
	ErrPaymentRequired   = errors.New("payment required")
	ErrStreamStartFailed = errors.New("failed to start stream")
	ErrUpstreamGateway   = errors.New("upstream gateway error")
	ErrModuleUnavailable = errors.New("backend module unavailable")
	ErrMalformedRequest  = errors.New("malformed request")
	ErrTransport         = errors.New("transport error")
)

// StatusError pairs a sentinel error with the HTTP status that produced it
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// FromStatus classifies a non-success HTTP status. fallback is used for
// anything that is neither 429 nor 402.
func FromStatus(status int, fallback error) *StatusError {
	switch status {
	case http.StatusTooManyRequests:
		return &StatusError{Status: status, Err: ErrRateLimited}
	case http.StatusPaymentRequired:
		return &StatusError{Status: status, Err: ErrPaymentRequired}
	default:
		return &StatusError{Status: status, Err: fallback}
	}
}
