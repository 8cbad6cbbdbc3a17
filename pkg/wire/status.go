package wire

// Status is the status code carried by subscribe and unsubscribe responses.
type Status uint32

const (
	// StatusSuccess indicates the request completed.
	StatusSuccess Status = 0

	// StatusUnknownResource indicates the resource URI is not recognised.
	StatusUnknownResource Status = 1

	// StatusSubscriptionLimitReached indicates the connection holds the
	// maximum number of subscriptions.
	StatusSubscriptionLimitReached Status = 2

	// StatusNoResourceData indicates the resource exists but has no data.
	StatusNoResourceData Status = 3

	// StatusThrottled indicates the client is sending too many requests.
	StatusThrottled Status = 1001

	// StatusServiceUnavailable indicates a transient service failure.
	StatusServiceUnavailable Status = 1002
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUnknownResource:
		return "UNKNOWN_RESOURCE"
	case StatusSubscriptionLimitReached:
		return "SUBSCRIPTION_LIMIT_REACHED"
	case StatusNoResourceData:
		return "NO_RESOURCE_DATA"
	case StatusThrottled:
		return "THROTTLED"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}

// IsRetryable reports whether the same request may succeed later.
func (s Status) IsRetryable() bool {
	return s == StatusThrottled || s == StatusServiceUnavailable
}
