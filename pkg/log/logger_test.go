package log

import (
	"sync"
	"testing"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) is not a NoopLogger")
	}
	c := &captureLogger{}
	if OrNoop(c) != Logger(c) {
		t.Error("OrNoop changed a non-nil logger")
	}
	NoopLogger{}.Log(Event{})
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{ConnectionID: "1"})
	m.Log(Event{ConnectionID: "2"})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("counts = %d, %d; want 2, 2", a.count(), b.count())
	}
	if a.events[1].ConnectionID != "2" {
		t.Errorf("order not preserved: %+v", a.events)
	}
}
