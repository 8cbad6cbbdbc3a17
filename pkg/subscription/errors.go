package subscription

import (
	"errors"
	"fmt"
)

// Subscription errors.
var (
	ErrInvalidTransition    = errors.New("invalid subscription state transition")
	ErrUnsubscribeRequested = errors.New("unsubscribe requested before ack")
	ErrClosed               = errors.New("subscription closed")
	ErrInvalidID            = errors.New("invalid subscription id")
	ErrDuplicateID          = errors.New("duplicate subscription id")
	ErrDuplicateResource    = errors.New("resource already subscribed")
	ErrNotRegistered        = errors.New("subscription not registered")
)

// ErrorCode classifies an ErrorEvent.
type ErrorCode uint8

const (
	// ErrorCodeDeserialization means a payload did not have the shape its
	// kind expects. The subscription stays Subscribed.
	ErrorCodeDeserialization ErrorCode = iota + 1

	// ErrorCodeSubscribeFailed means the service rejected a subscribe request
	// or the request could not be sent.
	ErrorCodeSubscribeFailed

	// ErrorCodeResubscribeFailed means re-establishing the subscription after
	// a reconnect failed.
	ErrorCodeResubscribeFailed

	// ErrorCodeConnectionClosed means the connection was closed for good
	// while the subscription was live.
	ErrorCodeConnectionClosed
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeDeserialization:
		return "DESERIALIZATION"
	case ErrorCodeSubscribeFailed:
		return "SUBSCRIBE_FAILED"
	case ErrorCodeResubscribeFailed:
		return "RESUBSCRIBE_FAILED"
	case ErrorCodeConnectionClosed:
		return "CONNECTION_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEvent reports a problem with one subscription. It is passed by value
// and never modified after it is raised.
type ErrorEvent struct {
	Subscription *Subscription
	Code         ErrorCode
	Message      string
	Err          error
}

// Error implements error so an ErrorEvent can be logged or wrapped directly.
func (e ErrorEvent) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e ErrorEvent) Unwrap() error {
	return e.Err
}

func newErrorEvent(s *Subscription, code ErrorCode, err error) ErrorEvent {
	var msg string
	switch code {
	case ErrorCodeDeserialization:
		msg = fmt.Sprintf("failed to deserialize %s payload for %s: %v", s.kind, s.uri, err)
	case ErrorCodeSubscribeFailed:
		msg = fmt.Sprintf("subscribe to %s failed: %v", s.uri, err)
	case ErrorCodeResubscribeFailed:
		msg = fmt.Sprintf("resubscribe to %s failed: %v", s.uri, err)
	default:
		msg = fmt.Sprintf("%s: %s: %v", code, s.uri, err)
	}
	return ErrorEvent{Subscription: s, Code: code, Message: msg, Err: err}
}
