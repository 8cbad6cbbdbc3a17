// Package metrics exposes RTA client metrics.
package metrics

import "time"

// Collector receives client measurements. Implementations must be safe for
// concurrent use.
type Collector interface {
	// FrameSent counts an outbound frame of the given message type.
	FrameSent(messageType string)

	// FrameReceived counts an inbound frame of the given message type.
	FrameReceived(messageType string)

	// EventDelivered counts an event handed to a subscription callback.
	EventDelivered(kind string)

	// SubscriptionError counts an error raised on a subscription.
	SubscriptionError(kind string, code string)

	// ResubscribeCompleted records one reconnect batch.
	ResubscribeCompleted(succeeded, failed int, duration time.Duration)

	// ActiveSubscriptions sets the number of subscriptions in the Subscribed
	// state.
	ActiveSubscriptions(n int)

	// ConnectionState records the connection lifecycle state.
	ConnectionState(state string)

	// ReconnectAttempt counts a reconnect dial.
	ReconnectAttempt()
}

// OrNoop returns c, or a NoopCollector when c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return NoopCollector{}
	}
	return c
}
