// Package connection tracks the lifecycle of the RTA websocket and drives
// reconnection.
//
// # States
//
//	Disconnected   no socket; a reconnect may be scheduled
//	Connecting     a dial is in progress
//	Connected      the socket is up and every subscription is current
//	Resubscribing  the socket is up and subscriptions are being re-established
//	Closed         terminal
//
// After a reconnect the owner calls BeginResubscribe, re-sends its
// subscriptions, and calls ResubscribeComplete once every request has been
// answered.
//
// # Reconnection
//
// When the socket is lost the Manager retries with exponential backoff:
// 1s, 2s, 4s and so on up to 60s, each delay extended by up to 25% jitter.
// The backoff resets after a successful connect.
package connection
