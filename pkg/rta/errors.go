package rta

import (
	"errors"
	"fmt"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

// Engine errors.
var (
	// ErrNotConnected is returned by a Sender when there is no socket. A
	// subscribe that hits it stays Unknown and is sent after the next
	// connect.
	ErrNotConnected = errors.New("rta: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("rta: connection closed")

	// ErrNoErrorHandler is returned by Subscribe when onError is nil.
	ErrNoErrorHandler = errors.New("rta: error handler is required")
)

// StatusError is a non-success status from the service.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service returned %s", e.Status)
	}
	return fmt.Sprintf("service returned %s: %s", e.Status, e.Message)
}

// Retryable reports whether the status is transient.
func (e *StatusError) Retryable() bool {
	return e.Status.IsRetryable()
}
