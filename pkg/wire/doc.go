// Package wire defines the RTA wire format.
//
// RTA frames are JSON arrays exchanged over a websocket negotiated with the
// "rta.xboxlive.com.V2" sub-protocol. The first element is the message type.
//
// # Client to Service
//
//	Subscribe     [1, sequence, "resource uri"]
//	Unsubscribe   [2, sequence, subscriptionId]
//
// # Service to Client
//
//	SubscribeResponse    [1, sequence, status, subscriptionId, data]
//	                     [1, sequence, status, "error message"]   (status != 0)
//	UnsubscribeResponse  [2, sequence, status]
//	Event                [3, subscriptionId, data]
//	Resync               [4]
//
// Sequence numbers are chosen by the client and echoed in the matching
// response. Subscription ids are assigned by the service.
package wire
