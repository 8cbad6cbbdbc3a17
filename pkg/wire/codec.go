package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// ErrMalformedFrame is returned when an inbound frame does not follow the
// RTA framing rules.
var ErrMalformedFrame = errors.New("malformed frame")

// EncodeSubscribe encodes [1, seq, uri].
func EncodeSubscribe(seq uint32, uri string) ([]byte, error) {
	if uri == "" {
		return nil, errors.New("empty resource uri")
	}
	return json.Marshal([]any{MessageTypeSubscribe, seq, uri})
}

// EncodeUnsubscribe encodes [2, seq, subscriptionID].
func EncodeUnsubscribe(seq uint32, subscriptionID uint32) ([]byte, error) {
	if subscriptionID == 0 {
		return nil, errors.New("zero subscription id")
	}
	return json.Marshal([]any{MessageTypeUnsubscribe, seq, subscriptionID})
}

// Decode parses an inbound frame.
func Decode(data []byte) (Frame, error) {
	if !gjson.ValidBytes(data) {
		return Frame{}, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return Frame{}, fmt.Errorf("%w: expected array, got %s", ErrMalformedFrame, root.Type)
	}
	elems := root.Array()
	if len(elems) == 0 {
		return Frame{}, fmt.Errorf("%w: empty array", ErrMalformedFrame)
	}

	typ, err := uintAt(elems, 0, "message type")
	if err != nil {
		return Frame{}, err
	}
	if typ > math.MaxUint8 {
		return Frame{}, fmt.Errorf("%w: unknown message type %d", ErrMalformedFrame, typ)
	}
	f := Frame{Type: MessageType(typ), Raw: string(data)}

	switch f.Type {
	case MessageTypeSubscribe:
		err = decodeSubscribeResponse(&f, elems)
	case MessageTypeUnsubscribe:
		err = decodeUnsubscribeResponse(&f, elems)
	case MessageTypeEvent:
		err = decodeEvent(&f, elems)
	case MessageTypeResync:
	default:
		err = fmt.Errorf("%w: unknown message type %d", ErrMalformedFrame, typ)
	}
	if err != nil {
		return Frame{}, err
	}
	return f, nil
}

func decodeSubscribeResponse(f *Frame, elems []gjson.Result) error {
	if len(elems) < 3 {
		return fmt.Errorf("%w: subscribe response has %d elements", ErrMalformedFrame, len(elems))
	}
	seq, err := uintAt(elems, 1, "sequence")
	if err != nil {
		return err
	}
	status, err := uintAt(elems, 2, "status")
	if err != nil {
		return err
	}
	f.Sequence = seq
	f.Status = Status(status)

	if f.Status.IsError() {
		if len(elems) > 3 {
			f.Message = elems[3].String()
		}
		return nil
	}

	id, err := uintAt(elems, 3, "subscription id")
	if err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("%w: zero subscription id", ErrMalformedFrame)
	}
	f.SubscriptionID = id
	if len(elems) > 4 {
		f.Data = elems[4]
	}
	return nil
}

func decodeUnsubscribeResponse(f *Frame, elems []gjson.Result) error {
	seq, err := uintAt(elems, 1, "sequence")
	if err != nil {
		return err
	}
	status, err := uintAt(elems, 2, "status")
	if err != nil {
		return err
	}
	f.Sequence = seq
	f.Status = Status(status)
	return nil
}

func decodeEvent(f *Frame, elems []gjson.Result) error {
	id, err := uintAt(elems, 1, "subscription id")
	if err != nil {
		return err
	}
	f.SubscriptionID = id
	// A missing payload is left for the subscription's delta rule to
	// reject, so its owner hears about it.
	if len(elems) > 2 {
		f.Data = elems[2]
	}
	return nil
}

// uintAt reads elems[i] as a non-negative integer that fits in 32 bits.
func uintAt(elems []gjson.Result, i int, what string) (uint32, error) {
	if i >= len(elems) {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedFrame, what)
	}
	v := elems[i]
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is %s, want number", ErrMalformedFrame, what, v.Type)
	}
	if v.Num < 0 || v.Num > math.MaxUint32 || v.Num != math.Trunc(v.Num) {
		return 0, fmt.Errorf("%w: %s %v out of range", ErrMalformedFrame, what, v.Num)
	}
	return uint32(v.Num), nil
}
