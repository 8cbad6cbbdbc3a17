package subscription

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/xbl-rta/rta-go/pkg/resource"
)

// State is the lifecycle state of a subscription.
type State uint8

const (
	// StateUnknown is the initial state and the state after a disconnect.
	StateUnknown State = iota

	// StatePendingSubscribe means a subscribe request is in flight.
	StatePendingSubscribe

	// StateSubscribed means the service acknowledged the subscription.
	StateSubscribed

	// StatePendingUnsubscribe means an unsubscribe request is in flight.
	StatePendingUnsubscribe

	// StateClosed is terminal.
	StateClosed

	// StateFailed means the service rejected the subscription.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StatePendingSubscribe:
		return "PENDING_SUBSCRIBE"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StatePendingUnsubscribe:
		return "PENDING_UNSUBSCRIBE"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "INVALID"
	}
}

// EventHandler receives typed events for a subscription.
type EventHandler func(resource.Event)

// ErrorHandler receives subscription errors.
type ErrorHandler func(ErrorEvent)

// Subscription is one watched resource.
type Subscription struct {
	kind    resource.Kind
	params  resource.Params
	uri     string
	onEvent EventHandler
	onError ErrorHandler

	mu    sync.RWMutex
	state State
	id    uint32
}

// New creates a subscription in StateUnknown.
//
// onEvent may be nil, in which case decoded events are dropped. onError is
// required; New panics if it is nil.
func New(kind resource.Kind, params resource.Params, onEvent EventHandler, onError ErrorHandler) (*Subscription, error) {
	if onError == nil {
		panic("subscription: nil error handler")
	}
	uri, err := resource.URI(kind, params)
	if err != nil {
		return nil, err
	}
	return &Subscription{
		kind:    kind,
		params:  params,
		uri:     uri,
		onEvent: onEvent,
		onError: onError,
	}, nil
}

// Kind returns the resource kind.
func (s *Subscription) Kind() resource.Kind { return s.kind }

// Params returns the parameters the URI was built from.
func (s *Subscription) Params() resource.Params { return s.params }

// URI returns the resource URI. It identifies the subscription.
func (s *Subscription) URI() string { return s.uri }

// ID returns the server-assigned id, or 0 when not Subscribed.
func (s *Subscription) ID() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// State returns the current state.
func (s *Subscription) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns state and id read together.
func (s *Subscription) Snapshot() (State, uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.id
}

// String returns a short description for logs.
func (s *Subscription) String() string {
	state, id := s.Snapshot()
	return fmt.Sprintf("%s[%s id=%d %s]", s.kind, s.uri, id, state)
}

// setState changes state and clears the id unless the new state is
// Subscribed. Caller must hold s.mu.
func (s *Subscription) setState(state State) {
	s.state = state
	if state != StateSubscribed {
		s.id = 0
	}
}

// MarkPendingSubscribe records that a subscribe request is about to be sent.
// Allowed from Unknown and Failed.
func (s *Subscription) MarkPendingSubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUnknown, StateFailed:
		s.setState(StatePendingSubscribe)
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StatePendingSubscribe)
	}
}

// Created applies a subscribe ack. On success the subscription is Subscribed
// with the given id and the initial payload has been handed to the kind's
// snapshot rule.
//
// If an unsubscribe was requested while the ack was outstanding, the initial
// payload is dropped, the state is left PendingUnsubscribe and
// ErrUnsubscribeRequested is returned; the caller must unsubscribe id.
//
// An initial payload that cannot be decoded raises one ErrorEvent but does not
// undo the subscription.
func (s *Subscription) Created(id uint32, initial gjson.Result) error {
	if id == 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	switch s.state {
	case StateUnknown, StatePendingSubscribe:
		s.state = StateSubscribed
		s.id = id
	case StatePendingUnsubscribe:
		s.mu.Unlock()
		return ErrUnsubscribeRequested
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st, StateSubscribed)
	}
	s.mu.Unlock()

	ev, ok, err := resource.DecodeInitial(s.kind, s.params, initial)
	if err != nil {
		s.raise(ErrorCodeDeserialization, err)
		return nil
	}
	if ok {
		s.emit(ev)
	}
	return nil
}

// Deliver decodes an event payload and hands it to the event handler. It
// returns false without decoding when the subscription is not Subscribed.
// A malformed payload raises exactly one ErrorEvent and no event.
func (s *Subscription) Deliver(payload gjson.Result) bool {
	if s.State() != StateSubscribed {
		return false
	}

	ev, err := resource.DecodeDelta(s.kind, s.params, payload)
	if err != nil {
		s.raise(ErrorCodeDeserialization, err)
		return true
	}
	s.emit(ev)
	return true
}

// MarkPendingUnsubscribe records an unsubscribe request and returns the id to
// send it for.
//
//   - Subscribed: moves to PendingUnsubscribe and returns the old id.
//   - PendingSubscribe: moves to PendingUnsubscribe and returns 0; the
//     unsubscribe is sent once the subscribe ack arrives.
//   - Unknown or Failed: nothing is live on the service, so the subscription
//     closes immediately and 0 is returned.
func (s *Subscription) MarkPendingUnsubscribe() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubscribed:
		id := s.id
		s.setState(StatePendingUnsubscribe)
		return id, nil
	case StatePendingSubscribe:
		s.setState(StatePendingUnsubscribe)
		return 0, nil
	case StateUnknown, StateFailed:
		s.setState(StateClosed)
		return 0, nil
	case StateClosed:
		return 0, ErrClosed
	default:
		return 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StatePendingUnsubscribe)
	}
}

// Reset is applied on connection loss. Subscribed and PendingSubscribe entries
// go back to Unknown and Reset returns true: they must be subscribed again, as
// must entries that were still Unknown.
// PendingUnsubscribe entries are closed, since the service drops every
// subscription of a lost connection.
func (s *Subscription) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUnknown:
		return true
	case StateSubscribed, StatePendingSubscribe:
		s.setState(StateUnknown)
		return true
	case StatePendingUnsubscribe:
		s.setState(StateClosed)
	}
	return false
}

// Fail moves the subscription to Failed and raises one ErrorEvent. It is a
// no-op on a closed subscription.
func (s *Subscription) Fail(code ErrorCode, err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.setState(StateFailed)
	s.mu.Unlock()

	s.raise(code, err)
}

// Close moves the subscription to Closed. It reports whether the state
// changed.
func (s *Subscription) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.setState(StateClosed)
	return true
}

// Abort closes a subscription whose connection is gone for good. A live
// subscription raises one ErrorEvent with ErrorCodeConnectionClosed.
func (s *Subscription) Abort(err error) {
	s.mu.Lock()
	prev := s.state
	s.setState(StateClosed)
	s.mu.Unlock()

	switch prev {
	case StatePendingSubscribe, StateSubscribed, StateUnknown:
		s.raise(ErrorCodeConnectionClosed, err)
	}
}

func (s *Subscription) emit(ev resource.Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *Subscription) raise(code ErrorCode, err error) {
	s.onError(newErrorEvent(s, code, err))
}
