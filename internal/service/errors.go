package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the services. Handlers map them to HTTP statuses
// with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrMalformedReply = errors.New("model reply is not in the expected format")
	ErrUpstream       = errors.New("upstream request failed")
	ErrTimeout        = errors.New("upstream request timed out")
	ErrSignature      = errors.New("signature verification failed")
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// MalformedReplyError keeps the raw model text for the error response.
type MalformedReplyError struct {
	Raw    string
	Reason string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedReply, e.Reason)
}

func (e *MalformedReplyError) Unwrap() error {
	return ErrMalformedReply
}
