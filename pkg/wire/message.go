package wire

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Subprotocol is the websocket sub-protocol the service speaks.
const Subprotocol = "rta.xboxlive.com.V2"

// MessageType is the first element of every frame.
type MessageType uint8

const (
	MessageTypeUnknown     MessageType = 0
	MessageTypeSubscribe   MessageType = 1
	MessageTypeUnsubscribe MessageType = 2
	MessageTypeEvent       MessageType = 3
	MessageTypeResync      MessageType = 4
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeSubscribe:
		return "SUBSCRIBE"
	case MessageTypeUnsubscribe:
		return "UNSUBSCRIBE"
	case MessageTypeEvent:
		return "EVENT"
	case MessageTypeResync:
		return "RESYNC"
	default:
		return "UNKNOWN"
	}
}

// Frame is a decoded service-to-client frame. Which fields are set depends on
// Type:
//
//	Subscribe    Sequence, Status, SubscriptionID and Data, or Message on failure
//	Unsubscribe  Sequence, Status
//	Event        SubscriptionID, Data
//	Resync       none
type Frame struct {
	Type           MessageType
	Sequence       uint32
	Status         Status
	SubscriptionID uint32

	// Data is the payload element. It does not exist when the frame has none;
	// it is JSON null when the service sent null.
	Data gjson.Result

	// Message is the error text of a failed subscribe response.
	Message string

	// Raw is the undecoded frame.
	Raw string
}

// String returns a short description for logs.
func (f Frame) String() string {
	switch f.Type {
	case MessageTypeSubscribe:
		if f.Status.IsError() {
			return fmt.Sprintf("SUBSCRIBE seq=%d status=%s msg=%q", f.Sequence, f.Status, f.Message)
		}
		return fmt.Sprintf("SUBSCRIBE seq=%d status=%s id=%d", f.Sequence, f.Status, f.SubscriptionID)
	case MessageTypeUnsubscribe:
		return fmt.Sprintf("UNSUBSCRIBE seq=%d status=%s", f.Sequence, f.Status)
	case MessageTypeEvent:
		return fmt.Sprintf("EVENT id=%d", f.SubscriptionID)
	case MessageTypeResync:
		return "RESYNC"
	default:
		return "UNKNOWN"
	}
}
