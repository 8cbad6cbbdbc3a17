package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

const presenceURI = "https://userpresence.xboxlive.com/users/xuid(1)/devices"

func sampleLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, ConnectionID: "a", Direction: DirectionOut, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: wire.MessageTypeSubscribe, Sequence: 1, ResourceURI: presenceURI}},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: wire.MessageTypeSubscribe, Sequence: 1, SubscriptionID: 7, ResourceURI: presenceURI}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "a", Direction: DirectionIn, Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: wire.MessageTypeEvent, SubscriptionID: 7, ResourceURI: presenceURI}},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Layer: LayerService, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntitySubscription, NewState: "UNKNOWN", ResourceURI: presenceURI}},
		{Timestamp: base.Add(4 * time.Second), ConnectionID: "b", Layer: LayerTransport, Category: CategoryControl,
			ControlMsg: &ControlMsgEvent{Type: ControlMsgPing, Sequence: 1}},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	return &buf
}

func TestReaderFilters(t *testing.T) {
	in := DirectionIn
	control := CategoryControl
	var id7 uint32 = 7
	eventType := wire.MessageTypeEvent
	start := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 5},
		{"connection", Filter{ConnectionID: "b"}, 2},
		{"direction", Filter{Direction: &in}, 4},
		{"category", Filter{Category: &control}, 1},
		{"time range", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"subscription id", Filter{SubscriptionID: &id7}, 2},
		{"message type", Filter{MessageType: &eventType}, 1},
		{"resource", Filter{ResourceURI: presenceURI}, 4},
		{"no match", Filter{ConnectionID: "zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReaderFrom(sampleLog(t), tt.filter)
			defer r.Close()
			events, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestReaderCorruptData(t *testing.T) {
	buf := sampleLog(t)
	buf.Write([]byte{0xff, 0x00, 0x13})

	r := NewReaderFrom(buf, Filter{})
	events, err := r.ReadAll()
	if err == nil {
		t.Error("expected an error for trailing garbage")
	}
	if len(events) != 5 {
		t.Errorf("got %d events before the error, want 5", len(events))
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader("/nonexistent/x.rlog"); err == nil {
		t.Error("expected an error")
	}
}
