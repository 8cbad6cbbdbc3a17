package log

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

func TestEncodeEventTagsTimestamp(t *testing.T) {
	data, err := EncodeEvent(Event{Timestamp: time.Unix(1700000000, 5).UTC(), ConnectionID: "c1"})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	var fields map[int]cbor.RawMessage
	if err := cbor.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	ts := fields[1]
	// 0xc0 is tag 0, a standard date/time string.
	if len(ts) == 0 || ts[0] != 0xc0 {
		t.Errorf("timestamp encoding = % x, want tag 0", ts)
	}
}

func TestDecodeEventKeepsInvalidUTF8Payload(t *testing.T) {
	payload := "\"Xbox\xffOne:true\""
	data, err := EncodeEvent(Event{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message:   &MessageEvent{Type: wire.MessageTypeEvent, SubscriptionID: 7, Payload: payload},
	})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Message == nil || got.Message.Payload != payload {
		t.Errorf("Payload = %+v, want %q", got.Message, payload)
	}
}

func TestDecodeEventRejectsDuplicateKeys(t *testing.T) {
	// {2: "a", 2: "b"}
	data := []byte{0xa2, 0x02, 0x61, 'a', 0x02, 0x61, 'b'}
	if _, err := DecodeEvent(data); err == nil {
		t.Error("DecodeEvent with duplicate connection id succeeded")
	}
}
