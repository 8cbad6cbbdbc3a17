package log

import (
	"time"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

// MaxCapturedFrame caps the bytes kept in a FrameEvent.
const MaxCapturedFrame = 4096

// Event is one protocol log record. Exactly one of the payload pointers is
// set. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the websocket session (UUID). A new id is
	// assigned on every reconnect.
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Endpoint is the websocket URL.
	Endpoint string `cbor:"6,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer is where an event was captured.
type Layer uint8

const (
	// LayerTransport is the websocket layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the RTA frame layer (decoded arrays).
	LayerWire Layer = 1
	// LayerService is the subscription engine.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies an event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent is a raw websocket text frame.
type FrameEvent struct {
	// Size is the full frame length in bytes.
	Size int `cbor:"1,keyasint"`

	// Data holds at most MaxCapturedFrame bytes of the frame.
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent captures data, truncating it to MaxCapturedFrame bytes.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxCapturedFrame {
		fe.Data = append([]byte(nil), data[:MaxCapturedFrame]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// MessageEvent is a decoded RTA frame.
type MessageEvent struct {
	Type     wire.MessageType `cbor:"1,keyasint"`
	Sequence uint32           `cbor:"2,keyasint,omitempty"`

	// Status is set on subscribe and unsubscribe responses.
	Status *wire.Status `cbor:"3,keyasint,omitempty"`

	SubscriptionID uint32 `cbor:"4,keyasint,omitempty"`

	// ResourceURI is filled in from the registry when known.
	ResourceURI string `cbor:"5,keyasint,omitempty"`

	// Payload is the JSON text of the data element.
	Payload string `cbor:"6,keyasint,omitempty"`

	// ErrorMessage is the text of a failed subscribe response.
	ErrorMessage string `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent records a lifecycle transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`

	// ResourceURI names the subscription for StateEntitySubscription.
	ResourceURI string `cbor:"5,keyasint,omitempty"`
}

// StateEntity is what changed state.
type StateEntity uint8

const (
	StateEntityConnection   StateEntity = 0
	StateEntitySubscription StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent is a websocket control frame.
type ControlMsgEvent struct {
	Type ControlMsgType `cbor:"1,keyasint"`

	// Sequence is the keep-alive sequence carried by pings and pongs.
	Sequence uint32 `cbor:"2,keyasint,omitempty"`

	// CloseCode is the websocket close status for close frames.
	CloseCode *int `cbor:"3,keyasint,omitempty"`
}

// ControlMsgType is the kind of control frame.
type ControlMsgType uint8

const (
	ControlMsgPing  ControlMsgType = 0
	ControlMsgPong  ControlMsgType = 1
	ControlMsgClose ControlMsgType = 2
)

// String returns the control message type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData records an error at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Code is a layer-specific code, such as a subscription error code.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes the operation in progress.
	Context string `cbor:"4,keyasint,omitempty"`

	// ResourceURI names the affected subscription, if any.
	ResourceURI string `cbor:"5,keyasint,omitempty"`
}
