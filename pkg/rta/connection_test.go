package rta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rtalog "github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/metrics"
	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/rta/mocks"
	"github.com/xbl-rta/rta-go/pkg/subscription"
	"github.com/xbl-rta/rta-go/pkg/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// request is one call recorded by the mock sender.
type request struct {
	seq uint32
	uri string
	id  uint32
}

// harness drives a Connection through a mock sender.
type harness struct {
	t      *testing.T
	sender *mocks.MockSender
	conn   *Connection
	subs   chan request
	unsubs chan request
}

func newHarness(t *testing.T, cfg ConnectionConfig) *harness {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	h := &harness{
		t:      t,
		sender: mocks.NewMockSender(t),
		subs:   make(chan request, 64),
		unsubs: make(chan request, 64),
	}
	h.conn = NewConnection(h.sender, cfg)
	t.Cleanup(func() { h.conn.Close(nil) })
	return h
}

// acceptSends makes every request succeed and records it.
func (h *harness) acceptSends() {
	h.sender.EXPECT().SendSubscribe(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, seq uint32, uri string) error {
			h.subs <- request{seq: seq, uri: uri}
			return nil
		}).Maybe()
	h.sender.EXPECT().SendUnsubscribe(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, seq uint32, id uint32) error {
			h.unsubs <- request{seq: seq, id: id}
			return nil
		}).Maybe()
}

func (h *harness) connect() {
	h.t.Helper()
	require.NoError(h.t, h.conn.OnReconnected(context.Background()))
}

func (h *harness) nextSubscribe() request {
	h.t.Helper()
	select {
	case r := <-h.subs:
		return r
	case <-time.After(2 * time.Second):
		h.t.Fatal("no subscribe request sent")
		return request{}
	}
}

func (h *harness) nextUnsubscribe() request {
	h.t.Helper()
	select {
	case r := <-h.unsubs:
		return r
	case <-time.After(2 * time.Second):
		h.t.Fatal("no unsubscribe request sent")
		return request{}
	}
}

func (h *harness) noRequests() {
	h.t.Helper()
	assert.Empty(h.t, h.subs, "unexpected subscribe request")
	assert.Empty(h.t, h.unsubs, "unexpected unsubscribe request")
}

func (h *harness) frame(format string, args ...any) {
	h.t.Helper()
	f, err := wire.Decode([]byte(fmt.Sprintf(format, args...)))
	require.NoError(h.t, err)
	h.conn.HandleFrame(f)
}

// subscribed subscribes to the device presence of xuid and acknowledges it
// with id.
func (h *harness) subscribed(xuid string, id uint32, s *sink) *subscription.Subscription {
	h.t.Helper()
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: xuid}, s.onEvent, s.onError)
	require.NoError(h.t, err)
	req := h.nextSubscribe()
	require.Equal(h.t, sub.URI(), req.uri)
	h.frame(`[1,%d,0,%d,{"titles":[]}]`, req.seq, id)
	require.Equal(h.t, subscription.StateSubscribed, sub.State())
	return sub
}

// reconnect runs OnReconnected in the background.
func (h *harness) reconnect(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.conn.OnReconnected(ctx) }()
	return errCh
}

// sink records what a subscription delivers.
type sink struct {
	mu     sync.Mutex
	events []resource.Event
	errs   []subscription.ErrorEvent
}

func (s *sink) onEvent(ev resource.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *sink) onError(ev subscription.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ev)
}

func (s *sink) Events() []resource.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]resource.Event(nil), s.events...)
}

func (s *sink) Errors() []subscription.ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]subscription.ErrorEvent(nil), s.errs...)
}

// captureLog records protocol log events.
type captureLog struct {
	mu     sync.Mutex
	events []rtalog.Event
}

func (c *captureLog) Log(ev rtalog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureLog) Events() []rtalog.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]rtalog.Event(nil), c.events...)
}

func TestSubscribeRequiresErrorHandler(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	_, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, nil, nil)
	assert.ErrorIs(t, err, ErrNoErrorHandler)
}

func TestSubscribeInvalidParams(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	var s sink
	_, err := h.conn.Subscribe(context.Background(), resource.KindStatistic,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	assert.ErrorIs(t, err, resource.ErrMissingParam)
	assert.Empty(t, h.conn.Subscriptions())
}

func TestSubscribeAckAndEvents(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "12345"}, s.onEvent, s.onError)
	require.NoError(t, err)

	req := h.nextSubscribe()
	assert.Equal(t, uint32(1), req.seq)
	assert.Equal(t, sub.URI(), req.uri)
	assert.Equal(t, subscription.StatePendingSubscribe, sub.State())

	h.frame(`[1,%d,0,7,{"titles":[]}]`, req.seq)
	assert.Equal(t, subscription.StateSubscribed, sub.State())
	assert.Equal(t, uint32(7), sub.ID())

	h.frame(`[3,7,"XboxOne:true"]`)

	events := s.Events()
	require.Len(t, events, 2)
	snap, ok := events[0].(resource.DevicePresenceSnapshot)
	require.True(t, ok)
	assert.Equal(t, "12345", snap.XboxUserID)
	assert.Empty(t, snap.Devices)
	assert.Equal(t, resource.DevicePresenceChanged{
		XboxUserID:     "12345",
		DeviceType:     resource.DeviceTypeXboxOne,
		IsUserLoggedOn: true,
	}, events[1])
	assert.Empty(t, s.Errors())

	got, ok := h.conn.Lookup(sub.URI())
	require.True(t, ok)
	assert.Same(t, sub, got)
}

func TestSubscribeDuplicateResource(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	h.subscribed("1", 7, &s)

	_, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	assert.ErrorIs(t, err, subscription.ErrDuplicateResource)
	assert.Len(t, h.conn.Subscriptions(), 1)
}

func TestSubscribeRejected(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindTitlePresence,
		resource.Params{XboxUserID: "1", TitleID: 42}, s.onEvent, s.onError)
	require.NoError(t, err)

	req := h.nextSubscribe()
	h.frame(`[1,%d,1001,"slow down"]`, req.seq)

	assert.Equal(t, subscription.StateFailed, sub.State())
	assert.Zero(t, sub.ID())
	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeSubscribeFailed, errs[0].Code)
	assert.Same(t, sub, errs[0].Subscription)

	var se *StatusError
	require.ErrorAs(t, errs[0], &se)
	assert.Equal(t, wire.StatusThrottled, se.Status)
	assert.Equal(t, "slow down", se.Message)
	assert.True(t, se.Retryable())

	// Failed entries stay registered until unsubscribed.
	_, ok := h.conn.Lookup(sub.URI())
	assert.True(t, ok)
	require.NoError(t, h.conn.Unsubscribe(context.Background(), sub))
	assert.Equal(t, subscription.StateClosed, sub.State())
	_, ok = h.conn.Lookup(sub.URI())
	assert.False(t, ok)
	h.noRequests()
}

func TestSubscribeWhileOffline(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	require.NoError(t, err)
	assert.Equal(t, subscription.StateUnknown, sub.State())
	h.noRequests()

	errCh := h.reconnect(context.Background())
	req := h.nextSubscribe()
	assert.Equal(t, sub.URI(), req.uri)
	h.frame(`[1,%d,0,3,{"titles":[]}]`, req.seq)

	require.NoError(t, <-errCh)
	assert.Equal(t, subscription.StateSubscribed, sub.State())
	assert.Len(t, s.Events(), 1)
}

func TestSendNotConnectedLeavesUnknown(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.connect()

	uri, err := resource.URI(resource.KindDevicePresence, resource.Params{XboxUserID: "1"})
	require.NoError(t, err)
	h.sender.EXPECT().SendSubscribe(mock.Anything, uint32(1), uri).
		Return(fmt.Errorf("%w: broken pipe", ErrNotConnected)).Once()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	require.NoError(t, err)

	assert.Equal(t, subscription.StateUnknown, sub.State())
	assert.Empty(t, s.Errors())
	_, ok := h.conn.Lookup(uri)
	assert.True(t, ok)
}

func TestSendFailureFailsSubscription(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.connect()

	boom := errors.New("boom")
	h.sender.EXPECT().SendSubscribe(mock.Anything, mock.Anything, mock.Anything).Return(boom).Once()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	require.NoError(t, err)

	assert.Equal(t, subscription.StateFailed, sub.State())
	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeSubscribeFailed, errs[0].Code)
	assert.ErrorIs(t, errs[0], boom)
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)

	require.NoError(t, h.conn.Unsubscribe(context.Background(), sub))
	req := h.nextUnsubscribe()
	assert.Equal(t, uint32(7), req.id)
	assert.Equal(t, subscription.StatePendingUnsubscribe, sub.State())
	assert.Zero(t, sub.ID())

	// Events racing the unsubscribe are dropped.
	h.frame(`[3,7,"XboxOne:false"]`)

	h.frame(`[2,%d,0]`, req.seq)
	assert.Equal(t, subscription.StateClosed, sub.State())
	_, ok := h.conn.Lookup(sub.URI())
	assert.False(t, ok)
	assert.Len(t, s.Events(), 1)
	assert.Empty(t, s.Errors())

	assert.ErrorIs(t, h.conn.Unsubscribe(context.Background(), sub), subscription.ErrNotRegistered)
}

func TestUnsubscribeBeforeAck(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	require.NoError(t, err)
	req := h.nextSubscribe()

	require.NoError(t, h.conn.Unsubscribe(context.Background(), sub))
	assert.Equal(t, subscription.StatePendingUnsubscribe, sub.State())
	h.noRequests()

	// The late ack is answered with an unsubscribe and its payload dropped.
	h.frame(`[1,%d,0,9,{"titles":[]}]`, req.seq)
	unsub := h.nextUnsubscribe()
	assert.Equal(t, uint32(9), unsub.id)
	assert.Zero(t, sub.ID())

	h.frame(`[3,9,"XboxOne:true"]`)
	h.frame(`[2,%d,0]`, unsub.seq)

	assert.Equal(t, subscription.StateClosed, sub.State())
	assert.Empty(t, s.Events())
	assert.Empty(t, s.Errors())
	_, ok := h.conn.Lookup(sub.URI())
	assert.False(t, ok)
}

func TestUnsubscribeBeforeRejectedAck(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "1"}, s.onEvent, s.onError)
	require.NoError(t, err)
	req := h.nextSubscribe()
	require.NoError(t, h.conn.Unsubscribe(context.Background(), sub))

	h.frame(`[1,%d,1,"no such user"]`, req.seq)
	assert.Equal(t, subscription.StateClosed, sub.State())
	assert.Empty(t, s.Errors())
	h.noRequests()
}

func TestMalformedEventRaisesOneError(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)

	h.frame(`[3,7,"XboxOne:maybe"]`)
	h.frame(`[3,7,"XboxOne:true"]`)

	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeDeserialization, errs[0].Code)
	assert.ErrorIs(t, errs[0], resource.ErrMalformedPayload)
	assert.Len(t, s.Events(), 2)
	assert.Equal(t, subscription.StateSubscribed, sub.State())
}

func TestEventWithoutPayloadRaisesOneError(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)
	require.Len(t, s.Events(), 1)

	h.frame(`[3,7]`)

	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeDeserialization, errs[0].Code)
	assert.ErrorIs(t, errs[0], resource.ErrMalformedPayload)
	assert.Len(t, s.Events(), 1)
	assert.Equal(t, subscription.StateSubscribed, sub.State())
}

func TestEventForUnknownIDIgnored(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	h.subscribed("1", 7, &s)
	h.frame(`[3,8,"XboxOne:true"]`)
	assert.Len(t, s.Events(), 1)
}

func TestAckForUnknownRequestReleasesID(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	h.frame(`[1,99,0,5,null]`)
	req := h.nextUnsubscribe()
	assert.Equal(t, uint32(5), req.id)

	h.frame(`[2,%d,0]`, req.seq)
	h.frame(`[2,1234,0]`)
	assert.Empty(t, h.conn.Subscriptions())
}

func TestResync(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	called := make(chan struct{}, 1)
	h.conn.SetResyncHandler(func() { called <- struct{}{} })

	h.frame(`[4]`)
	select {
	case <-called:
	default:
		t.Fatal("resync handler not called")
	}
}

func TestDisconnectClearsIDs(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)

	h.conn.OnDisconnected()
	assert.False(t, h.conn.Online())
	assert.Equal(t, subscription.StateUnknown, sub.State())
	assert.Zero(t, sub.ID())

	h.frame(`[3,7,"XboxOne:true"]`)
	assert.Len(t, s.Events(), 1)
	assert.Empty(t, s.Errors())
}

func TestDisconnectClosesPendingUnsubscribe(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)
	require.NoError(t, h.conn.Unsubscribe(context.Background(), sub))
	h.nextUnsubscribe()

	h.conn.OnDisconnected()
	assert.Equal(t, subscription.StateClosed, sub.State())
	assert.Empty(t, h.conn.Subscriptions())
	assert.Empty(t, s.Errors())
}

func TestResubscribePartialFailure(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var handled error
	handlerCalled := make(chan struct{})
	h.conn.SetResubscribeHandler(func(err error) {
		handled = err
		close(handlerCalled)
	})

	var sa, sb sink
	a := h.subscribed("1", 10, &sa)
	b := h.subscribed("2", 11, &sb)

	h.conn.OnDisconnected()
	assert.Zero(t, a.ID())
	assert.Zero(t, b.ID())

	errCh := h.reconnect(context.Background())
	seqs := map[string]uint32{}
	for i := 0; i < 2; i++ {
		req := h.nextSubscribe()
		seqs[req.uri] = req.seq
	}
	require.Contains(t, seqs, a.URI())
	require.Contains(t, seqs, b.URI())

	h.frame(`[1,%d,0,20,{"titles":[]}]`, seqs[a.URI()])
	h.frame(`[1,%d,1,"unknown user"]`, seqs[b.URI()])

	err := <-errCh
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	assert.Contains(t, merr.Errors[0].Error(), b.URI())

	<-handlerCalled
	assert.Equal(t, err.Error(), handled.Error())

	assert.Equal(t, subscription.StateSubscribed, a.State())
	assert.Equal(t, uint32(20), a.ID())
	assert.Empty(t, sa.Errors())
	assert.Len(t, sa.Events(), 2)

	assert.Equal(t, subscription.StateFailed, b.State())
	assert.Zero(t, b.ID())
	errs := sb.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeResubscribeFailed, errs[0].Code)

	// The old id is gone; the new one delivers.
	h.frame(`[3,10,"XboxOne:true"]`)
	h.frame(`[3,20,"XboxOne:true"]`)
	assert.Len(t, sa.Events(), 3)
}

func TestEventsQueuedDuringResubscribe(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var sa, sb sink
	a := h.subscribed("1", 10, &sa)
	b := h.subscribed("2", 11, &sb)
	h.conn.OnDisconnected()

	errCh := h.reconnect(context.Background())
	seqs := map[string]uint32{}
	for i := 0; i < 2; i++ {
		req := h.nextSubscribe()
		seqs[req.uri] = req.seq
	}

	h.frame(`[1,%d,0,20,{"titles":[]}]`, seqs[a.URI()])
	h.frame(`[3,20,"XboxOne:true"]`)
	h.frame(`[3,20,"XboxOne:false"]`)

	// Held until the batch completes.
	assert.Len(t, sa.Events(), 2)

	h.frame(`[1,%d,0,21,{"titles":[]}]`, seqs[b.URI()])
	require.NoError(t, <-errCh)

	events := sa.Events()
	require.Len(t, events, 4)
	assert.True(t, events[2].(resource.DevicePresenceChanged).IsUserLoggedOn)
	assert.False(t, events[3].(resource.DevicePresenceChanged).IsUserLoggedOn)
	assert.Equal(t, subscription.StateSubscribed, b.State())
}

func TestResubscribeTimeout(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)
	h.conn.OnDisconnected()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.conn.OnReconnected(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	req := h.nextSubscribe()
	assert.Equal(t, subscription.StateFailed, sub.State())
	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, subscription.ErrorCodeResubscribeFailed, errs[0].Code)

	// A late ack releases the service-side subscription.
	h.frame(`[1,%d,0,30,{"titles":[]}]`, req.seq)
	unsub := h.nextUnsubscribe()
	assert.Equal(t, uint32(30), unsub.id)
	assert.Equal(t, subscription.StateFailed, sub.State())
}

func TestDisconnectDuringResubscribe(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)
	h.conn.OnDisconnected()

	errCh := h.reconnect(context.Background())
	h.nextSubscribe()
	h.conn.OnDisconnected()

	assert.ErrorIs(t, <-errCh, ErrNotConnected)
	assert.Equal(t, subscription.StateUnknown, sub.State())
	assert.Empty(t, s.Errors())
}

func TestCloseAbortsSubscriptions(t *testing.T) {
	h := newHarness(t, ConnectionConfig{})
	h.acceptSends()
	h.connect()

	var sa, sb sink
	a := h.subscribed("1", 7, &sa)
	b, err := h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "2"}, sb.onEvent, sb.onError)
	require.NoError(t, err)
	h.nextSubscribe()

	h.conn.Close(nil)

	for _, s := range []*sink{&sa, &sb} {
		errs := s.Errors()
		require.Len(t, errs, 1)
		assert.Equal(t, subscription.ErrorCodeConnectionClosed, errs[0].Code)
		assert.ErrorIs(t, errs[0], ErrClosed)
	}
	assert.Equal(t, subscription.StateClosed, a.State())
	assert.Equal(t, subscription.StateClosed, b.State())
	assert.Empty(t, h.conn.Subscriptions())

	_, err = h.conn.Subscribe(context.Background(), resource.KindDevicePresence,
		resource.Params{XboxUserID: "3"}, sa.onEvent, sa.onError)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.conn.OnReconnected(context.Background()), ErrClosed)

	h.conn.Close(nil)
	assert.Len(t, sa.Errors(), 1)
}

func TestProtocolLogAndMetrics(t *testing.T) {
	var plog captureLog
	m := &countingMetrics{}
	h := newHarness(t, ConnectionConfig{ProtocolLogger: &plog, Metrics: m})
	h.acceptSends()
	h.conn.SetConnectionID("conn-1")
	h.connect()

	var s sink
	sub := h.subscribed("1", 7, &s)
	h.frame(`[3,7,"XboxOne:true"]`)

	var out, in, states int
	for _, ev := range plog.Events() {
		assert.Equal(t, "conn-1", ev.ConnectionID)
		switch {
		case ev.Message != nil && ev.Direction == rtalog.DirectionOut:
			out++
			assert.Equal(t, wire.MessageTypeSubscribe, ev.Message.Type)
			assert.Equal(t, sub.URI(), ev.Message.ResourceURI)
		case ev.Message != nil:
			in++
		case ev.StateChange != nil:
			states++
			assert.Equal(t, rtalog.StateEntitySubscription, ev.StateChange.Entity)
			assert.Equal(t, sub.URI(), ev.StateChange.ResourceURI)
		}
	}
	assert.Equal(t, 1, out)
	assert.Equal(t, 2, in)
	assert.Equal(t, 1, states)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 2, m.delivered)
	assert.Equal(t, 1, m.sent)
	assert.Equal(t, 2, m.received)
	assert.Equal(t, 1, m.active)
}

// countingMetrics counts the measurements the engine reports.
type countingMetrics struct {
	metrics.NoopCollector

	mu        sync.Mutex
	sent      int
	received  int
	delivered int
	active    int
}

func (m *countingMetrics) FrameSent(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *countingMetrics) FrameReceived(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received++
}

func (m *countingMetrics) EventDelivered(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
}

func (m *countingMetrics) ActiveSubscriptions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}
