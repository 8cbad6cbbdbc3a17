// Package rta is the Xbox Live Real-Time Activity subscription engine.
//
// A Connection owns a subscription registry and dispatches inbound RTA frames
// to the subscriptions they belong to. It does not touch the network: frames
// leave through a Sender and arrive through HandleFrame. Client combines a
// Connection with a websocket transport and a reconnecting
// connection.Manager.
//
// # Reconnects
//
// When the socket drops, every live subscription returns to Unknown and loses
// its id. After the next connect each of them is subscribed again. Event
// frames that arrive before every resubscribe has been answered are queued
// and delivered, in arrival order, once the batch is done. A resubscribe the
// service rejects fails only that subscription.
//
// # Callbacks
//
// Event and error handlers run on the goroutine that handled the frame,
// usually the client's read pump. They must not block for long. They may call
// Subscribe and Unsubscribe.
package rta
