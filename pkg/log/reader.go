package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

// Filter selects log events. Zero-valued fields match everything.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// TimeStart matches events at or after this time.
	TimeStart *time.Time

	// TimeEnd matches events strictly before this time.
	TimeEnd *time.Time

	// SubscriptionID matches message events carrying this id.
	SubscriptionID *uint32

	// ResourceURI matches message, state and error events for this resource.
	ResourceURI string

	// MessageType matches message events of this type.
	MessageType *wire.MessageType
}

// Matches reports whether the event passes every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.SubscriptionID != nil {
		if event.Message == nil || event.Message.SubscriptionID != *f.SubscriptionID {
			return false
		}
	}
	if f.MessageType != nil {
		if event.Message == nil || event.Message.Type != *f.MessageType {
			return false
		}
	}
	if f.ResourceURI != "" && resourceURI(event) != f.ResourceURI {
		return false
	}
	return true
}

func resourceURI(event Event) string {
	switch {
	case event.Message != nil:
		return event.Message.ResourceURI
	case event.StateChange != nil:
		return event.StateChange.ResourceURI
	case event.Error != nil:
		return event.Error.ResourceURI
	}
	return ""
}

// Reader streams events from a CBOR log.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file and reads events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReaderFrom(f, filter)
	r.closer = f
	return r, nil
}

// NewReaderFrom reads events from r. Close does not close r.
func NewReaderFrom(r io.Reader, filter Filter) *Reader {
	return &Reader{
		decoder: NewDecoder(r),
		filter:  filter,
	}
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// Close closes the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
