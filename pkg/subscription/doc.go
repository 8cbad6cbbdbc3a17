// Package subscription implements RTA subscriptions and the registry that
// tracks them.
//
// A Subscription is one resource URI watched on behalf of a caller. The RTA
// service assigns it a numeric id when it acknowledges the subscribe request;
// every event frame is addressed by that id.
//
// # States
//
//	Unknown            created, nothing sent yet (or reset after a disconnect)
//	PendingSubscribe   subscribe request sent, waiting for the ack
//	Subscribed         ack received, id assigned, events delivered
//	PendingUnsubscribe unsubscribe requested, waiting for the ack
//	Closed             terminal
//	Failed             rejected by the service; may be subscribed again
//
// The id is non-zero only while the subscription is Subscribed. Every
// transition away from Subscribed clears it under the same lock, so no caller
// can observe a stale id paired with another state.
//
// # Callbacks
//
// The event handler receives typed resource events. The error handler receives
// an ErrorEvent whenever a payload cannot be decoded or the service rejects the
// subscription. Handlers are always invoked without any internal lock held.
//
// # Lifecycle
//
// Subscriptions survive connection loss. On disconnect the Registry resets
// every live entry to Unknown and hands them back for resubscription once the
// connection is re-established.
package subscription
