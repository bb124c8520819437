package whatsapp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage marks a builder precondition violation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNoMessages means the webhook carried no user message (e.g. a status callback).
	ErrNoMessages = errors.New("webhook has no messages")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, reason)
}

// GatewayError reports that the Cloud API rejected or failed to deliver a payload.
// Status is 0 when the request never got a response.
type GatewayError struct {
	Status int
	Body   string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("whatsapp API: %v", e.Err)
	}
	return fmt.Sprintf("whatsapp API status %d: %s", e.Status, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// MalformedEventError reports an inbound message without the structure its type promises.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return "malformed webhook event: " + e.Reason
}
