package rta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"

	rtalog "github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/metrics"
	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/subscription"
	"github.com/xbl-rta/rta-go/pkg/wire"
)

// ConnectionConfig configures a Connection.
type ConnectionConfig struct {
	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives wire and service layer capture events.
	ProtocolLogger rtalog.Logger

	// Metrics receives measurements.
	Metrics metrics.Collector
}

type pendingSubscribe struct {
	sub   *subscription.Subscription
	batch *resubscribeBatch
}

// pendingUnsubscribe has a nil sub when the id belongs to no subscription,
// e.g. an ack that arrived after its request was given up.
type pendingUnsubscribe struct {
	sub *subscription.Subscription
	id  uint32
}

type queuedEvent struct {
	id      uint32
	payload gjson.Result
}

// resubscribeBatch tracks the resubscribes issued after one connect. Fields
// are guarded by Connection.mu until done is closed.
type resubscribeBatch struct {
	started     time.Time
	outstanding int
	succeeded   int
	failed      int
	errs        *multierror.Error
	done        chan struct{}
}

// Connection is the subscription engine for one logical RTA connection.
// It survives socket reconnects; the owner reports them with OnDisconnected
// and OnReconnected.
type Connection struct {
	sender   Sender
	registry *subscription.Registry
	logger   *slog.Logger
	protoLog rtalog.Logger
	metrics  metrics.Collector

	// ctx bounds requests the engine sends on its own, such as the
	// unsubscribe that follows a late subscribe ack.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	seq           uint32
	connID        string
	online        bool
	closed        bool
	pendingSubs   map[uint32]pendingSubscribe
	pendingUnsubs map[uint32]pendingUnsubscribe
	batch         *resubscribeBatch
	queued        []queuedEvent

	onResync       func()
	onResubscribed func(err error)
}

// NewConnection creates an offline Connection that writes through sender.
func NewConnection(sender Sender, cfg ConnectionConfig) *Connection {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		sender:        sender,
		registry:      subscription.NewRegistry(),
		logger:        logger,
		protoLog:      rtalog.OrNoop(cfg.ProtocolLogger),
		metrics:       metrics.OrNoop(cfg.Metrics),
		ctx:           ctx,
		cancel:        cancel,
		pendingSubs:   make(map[uint32]pendingSubscribe),
		pendingUnsubs: make(map[uint32]pendingUnsubscribe),
	}
}

// SetConnectionID sets the id stamped on protocol log events.
func (c *Connection) SetConnectionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connID = id
}

// SetResyncHandler sets a callback for resync frames. The service sends one
// when it may have dropped events; the application should refetch state.
func (c *Connection) SetResyncHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResync = fn
}

// SetResubscribeHandler sets a callback run after every resubscribe batch
// with the aggregated failures, or nil.
func (c *Connection) SetResubscribeHandler(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResubscribed = fn
}

// Online reports whether requests are currently sent.
func (c *Connection) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Subscriptions returns every registered subscription ordered by URI.
func (c *Connection) Subscriptions() []*subscription.Subscription {
	return c.registry.All()
}

// Lookup returns the subscription registered for uri.
func (c *Connection) Lookup(uri string) (*subscription.Subscription, bool) {
	return c.registry.ByURI(uri)
}

// Subscribe registers a subscription and, when online, sends the subscribe
// request. Offline subscriptions stay Unknown and are sent after the next
// connect.
//
// Subscribe fails only for invalid parameters, a resource that already has an
// active subscription, or a closed connection. Later failures are reported to
// onError.
func (c *Connection) Subscribe(ctx context.Context, kind resource.Kind, params resource.Params,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	if onError == nil {
		return nil, ErrNoErrorHandler
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	sub, err := subscription.New(kind, params, c.eventHandler(kind, onEvent), c.errorHandler(kind, onError))
	if err != nil {
		return nil, err
	}
	if err := c.registry.Add(sub); err != nil {
		return nil, fmt.Errorf("%s: %w", sub.URI(), err)
	}
	c.subscribe(ctx, sub, nil)
	return sub, nil
}

// Unsubscribe ends a subscription. A Subscribed entry sends an unsubscribe
// request and closes when it is answered. An entry whose subscribe is still
// in flight is unsubscribed as soon as the ack arrives, and its initial
// payload is dropped. Anything else closes immediately.
func (c *Connection) Unsubscribe(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return subscription.ErrNotRegistered
	}
	if cur, ok := c.registry.ByURI(sub.URI()); !ok || cur != sub {
		return subscription.ErrNotRegistered
	}

	id, err := sub.MarkPendingUnsubscribe()
	if err != nil {
		return err
	}
	if id != 0 {
		return c.sendUnsubscribe(ctx, sub, id)
	}
	if sub.State() == subscription.StateClosed {
		c.registry.Remove(sub)
		c.logSubscriptionState(sub, "unsubscribed while inactive")
	}
	return nil
}

// HandleFrame dispatches one inbound frame. Frames must be passed in the
// order they were received.
func (c *Connection) HandleFrame(frame wire.Frame) {
	c.metrics.FrameReceived(frame.Type.String())
	c.logInbound(frame)

	switch frame.Type {
	case wire.MessageTypeSubscribe:
		if frame.Status.IsSuccess() {
			c.OnSubscriptionCreated(frame.Sequence, frame.SubscriptionID, frame.Data)
		} else {
			c.OnSubscribeFailed(frame.Sequence, frame.Status, frame.Message)
		}
	case wire.MessageTypeUnsubscribe:
		c.OnUnsubscribed(frame.Sequence, frame.Status)
	case wire.MessageTypeEvent:
		c.OnEventReceived(frame.SubscriptionID, frame.Data)
	case wire.MessageTypeResync:
		c.OnResync()
	default:
		c.logger.Warn("rta unexpected frame", "type", frame.Type)
	}
}

// OnSubscriptionCreated applies a successful subscribe response.
func (c *Connection) OnSubscriptionCreated(seq, id uint32, payload gjson.Result) {
	c.mu.Lock()
	p, ok := c.pendingSubs[seq]
	delete(c.pendingSubs, seq)
	c.mu.Unlock()

	if !ok {
		// The request was given up; release the service-side slot.
		c.logger.Warn("rta subscribe ack for unknown request", "seq", seq, "id", id)
		c.releaseOrphan(id)
		return
	}
	sub := p.sub

	if err := c.registry.Bind(sub, id); err != nil {
		c.logger.Warn("rta cannot index subscription", "uri", sub.URI(), "id", id, "error", err)
		c.failPending(p, err)
		c.releaseOrphan(id)
		return
	}

	err := sub.Created(id, payload)
	switch {
	case err == nil:
		c.logSubscriptionState(sub, "")
		c.updateActive()
		c.settle(p.batch, true, nil)
	case errors.Is(err, subscription.ErrUnsubscribeRequested):
		c.registry.Unbind(id)
		c.logger.Debug("rta unsubscribing after late ack", "uri", sub.URI(), "id", id)
		if err := c.sendUnsubscribe(c.ctx, sub, id); err != nil {
			c.logger.Warn("rta unsubscribe failed", "uri", sub.URI(), "id", id, "error", err)
		}
		c.settle(p.batch, false, nil)
	default:
		c.registry.Unbind(id)
		c.logger.Debug("rta subscribe ack ignored", "uri", sub.URI(), "id", id, "error", err)
		c.releaseOrphan(id)
		c.settle(p.batch, false, nil)
	}
}

// OnSubscribeFailed applies a failed subscribe response.
func (c *Connection) OnSubscribeFailed(seq uint32, status wire.Status, message string) {
	c.mu.Lock()
	p, ok := c.pendingSubs[seq]
	delete(c.pendingSubs, seq)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("rta subscribe failure for unknown request", "seq", seq, "status", status)
		return
	}
	c.failPending(p, &StatusError{Status: status, Message: message})
}

// failPending settles a subscribe request that did not succeed. A
// subscription whose owner already asked to unsubscribe simply closes.
func (c *Connection) failPending(p pendingSubscribe, cause error) {
	sub := p.sub
	if sub.State() == subscription.StatePendingUnsubscribe {
		sub.Close()
		c.registry.Remove(sub)
		c.logSubscriptionState(sub, cause.Error())
		c.settle(p.batch, false, nil)
		return
	}

	code := subscription.ErrorCodeSubscribeFailed
	if p.batch != nil {
		code = subscription.ErrorCodeResubscribeFailed
	}
	sub.Fail(code, cause)
	c.updateActive()
	c.settle(p.batch, false, fmt.Errorf("%s: %w", sub.URI(), cause))
}

// OnEventReceived dispatches an event frame. While a resubscribe batch is
// outstanding the event is queued instead.
func (c *Connection) OnEventReceived(id uint32, payload gjson.Result) {
	c.mu.Lock()
	if c.batch != nil {
		c.queued = append(c.queued, queuedEvent{id: id, payload: payload})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.deliver(id, payload)
}

func (c *Connection) deliver(id uint32, payload gjson.Result) {
	sub, ok := c.registry.ByID(id)
	if !ok {
		c.logger.Debug("rta event for unknown subscription", "id", id)
		return
	}
	if !sub.Deliver(payload) {
		c.logger.Debug("rta event for inactive subscription", "uri", sub.URI(), "id", id)
	}
}

// OnUnsubscribed applies an unsubscribe response. The subscription closes
// whatever the status; the service has stopped sending for it either way.
func (c *Connection) OnUnsubscribed(seq uint32, status wire.Status) {
	c.mu.Lock()
	p, ok := c.pendingUnsubs[seq]
	delete(c.pendingUnsubs, seq)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("rta unsubscribe ack for unknown request", "seq", seq, "status", status)
		return
	}
	if status.IsError() {
		c.logger.Warn("rta unsubscribe rejected", "id", p.id, "status", status)
	}
	c.closeLocally(p.sub, p.id)
}

// OnResync runs the resync handler.
func (c *Connection) OnResync() {
	c.mu.Lock()
	fn := c.onResync
	c.mu.Unlock()

	c.logger.Info("rta resync requested")
	if fn != nil {
		fn()
	}
}

// OnDisconnected is called when the socket is lost. Outstanding requests are
// abandoned, live subscriptions return to Unknown, and subscriptions waiting
// for an unsubscribe ack close.
func (c *Connection) OnDisconnected() {
	c.mu.Lock()
	c.online = false
	c.pendingSubs = make(map[uint32]pendingSubscribe)
	c.pendingUnsubs = make(map[uint32]pendingUnsubscribe)
	batch := c.abortBatchLocked()
	dropped := len(c.queued)
	c.queued = nil
	c.mu.Unlock()

	if batch != nil {
		close(batch.done)
	}
	resubscribe := c.registry.Detach()
	c.metrics.ActiveSubscriptions(0)
	c.logger.Info("rta subscriptions detached", "resubscribe", len(resubscribe), "dropped_events", dropped)
}

// abortBatchLocked detaches the current batch, if any, and returns it. The
// caller must close its done channel after unlocking.
func (c *Connection) abortBatchLocked() *resubscribeBatch {
	batch := c.batch
	if batch == nil {
		return nil
	}
	c.batch = nil
	batch.errs = multierror.Append(batch.errs, ErrNotConnected)
	return batch
}

// OnReconnected is called once a new socket is up. It subscribes every
// Unknown entry and waits until each request has been answered, failed, or
// ctx expires; requests still outstanding then fail. The result aggregates
// the individual failures and is meant for logging: each failed
// subscription has already raised its own ErrorEvent.
func (c *Connection) OnReconnected(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.online = true
	stale := c.abortBatchLocked()
	c.queued = nil

	subs := c.registry.InState(subscription.StateUnknown)
	if len(subs) == 0 {
		c.mu.Unlock()
		if stale != nil {
			close(stale.done)
		}
		return nil
	}
	batch := &resubscribeBatch{
		started:     time.Now(),
		outstanding: len(subs),
		done:        make(chan struct{}),
	}
	c.batch = batch
	c.mu.Unlock()

	if stale != nil {
		close(stale.done)
	}

	c.logger.Info("rta resubscribing", "count", len(subs))
	for _, sub := range subs {
		c.subscribe(ctx, sub, batch)
	}

	select {
	case <-batch.done:
	case <-ctx.Done():
		c.expire(batch, ctx.Err())
		<-batch.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return batch.errs.ErrorOrNil()
}

// expire fails the requests of batch that are still outstanding.
func (c *Connection) expire(batch *resubscribeBatch, cause error) {
	c.mu.Lock()
	var expired []pendingSubscribe
	for seq, p := range c.pendingSubs {
		if p.batch == batch {
			expired = append(expired, p)
			delete(c.pendingSubs, seq)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		c.failPending(p, cause)
	}
}

// Close aborts every subscription with ErrorCodeConnectionClosed and stops
// the engine. cause is reported to the error handlers; nil means ErrClosed.
func (c *Connection) Close(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.online = false
	c.pendingSubs = make(map[uint32]pendingSubscribe)
	c.pendingUnsubs = make(map[uint32]pendingUnsubscribe)
	batch := c.abortBatchLocked()
	c.queued = nil
	c.mu.Unlock()

	if batch != nil {
		close(batch.done)
	}
	c.cancel()

	if cause == nil {
		cause = ErrClosed
	}
	for _, sub := range c.registry.All() {
		sub.Abort(cause)
		c.registry.Remove(sub)
	}
	c.metrics.ActiveSubscriptions(0)
}

// subscribe sends a subscribe request for sub. Every outcome except a written
// request is settled here; a written request is settled by its response.
func (c *Connection) subscribe(ctx context.Context, sub *subscription.Subscription, batch *resubscribeBatch) {
	c.mu.Lock()
	if c.closed || !c.online {
		c.mu.Unlock()
		c.settle(batch, false, nil)
		return
	}
	if err := sub.MarkPendingSubscribe(); err != nil {
		c.mu.Unlock()
		c.logger.Debug("rta subscribe skipped", "uri", sub.URI(), "error", err)
		c.settle(batch, false, nil)
		return
	}
	seq := c.nextSeqLocked()
	c.pendingSubs[seq] = pendingSubscribe{sub: sub, batch: batch}
	c.mu.Unlock()

	c.logOutbound(&rtalog.MessageEvent{
		Type:        wire.MessageTypeSubscribe,
		Sequence:    seq,
		ResourceURI: sub.URI(),
	})
	err := c.sender.SendSubscribe(ctx, seq, sub.URI())
	if err == nil {
		c.metrics.FrameSent(wire.MessageTypeSubscribe.String())
		return
	}

	c.mu.Lock()
	p, pending := c.pendingSubs[seq]
	delete(c.pendingSubs, seq)
	c.mu.Unlock()
	if !pending {
		// A disconnect or an expired batch already settled it.
		return
	}

	if errors.Is(err, ErrNotConnected) {
		c.logger.Debug("rta subscribe deferred until connected", "uri", sub.URI())
		if !sub.Reset() {
			c.registry.Remove(sub)
		}
		c.settle(batch, false, nil)
		return
	}
	c.logger.Warn("rta subscribe request failed", "uri", sub.URI(), "error", err)
	c.failPending(p, err)
}

// sendUnsubscribe sends an unsubscribe for id on behalf of sub, which may be
// nil. When nothing can be sent the subscription closes locally.
func (c *Connection) sendUnsubscribe(ctx context.Context, sub *subscription.Subscription, id uint32) error {
	c.mu.Lock()
	if c.closed || !c.online {
		c.mu.Unlock()
		c.closeLocally(sub, id)
		return nil
	}
	seq := c.nextSeqLocked()
	c.pendingUnsubs[seq] = pendingUnsubscribe{sub: sub, id: id}
	c.mu.Unlock()

	msg := &rtalog.MessageEvent{Type: wire.MessageTypeUnsubscribe, Sequence: seq, SubscriptionID: id}
	if sub != nil {
		msg.ResourceURI = sub.URI()
	}
	c.logOutbound(msg)

	err := c.sender.SendUnsubscribe(ctx, seq, id)
	if err == nil {
		c.metrics.FrameSent(wire.MessageTypeUnsubscribe.String())
		return nil
	}

	c.mu.Lock()
	delete(c.pendingUnsubs, seq)
	c.mu.Unlock()
	c.closeLocally(sub, id)

	if errors.Is(err, ErrNotConnected) {
		// The service drops every subscription of a lost socket.
		return nil
	}
	return fmt.Errorf("unsubscribe %d: %w", id, err)
}

func (c *Connection) releaseOrphan(id uint32) {
	if id == 0 {
		return
	}
	if err := c.sendUnsubscribe(c.ctx, nil, id); err != nil {
		c.logger.Warn("rta cannot release subscription", "id", id, "error", err)
	}
}

func (c *Connection) closeLocally(sub *subscription.Subscription, id uint32) {
	if id != 0 {
		c.registry.Unbind(id)
	}
	if sub == nil {
		return
	}
	sub.Close()
	c.registry.Remove(sub)
	c.logSubscriptionState(sub, "unsubscribed")
	c.updateActive()
}

// settle records the outcome of one request of batch. The last outcome
// finishes the batch.
func (c *Connection) settle(batch *resubscribeBatch, succeeded bool, err error) {
	if batch == nil {
		return
	}

	c.mu.Lock()
	if c.batch != batch {
		c.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		batch.failed++
		batch.errs = multierror.Append(batch.errs, err)
	case succeeded:
		batch.succeeded++
	}
	batch.outstanding--
	last := batch.outstanding == 0
	c.mu.Unlock()

	if last {
		c.finish(batch)
	}
}

// finish drains events queued during the batch in arrival order and then
// releases the queue. Events that arrive while draining join the queue, so
// ordering holds across the handover.
func (c *Connection) finish(batch *resubscribeBatch) {
	for {
		c.mu.Lock()
		if c.batch != batch {
			c.mu.Unlock()
			return
		}
		if len(c.queued) == 0 {
			c.batch = nil
			succeeded, failed := batch.succeeded, batch.failed
			err := batch.errs.ErrorOrNil()
			fn := c.onResubscribed
			c.mu.Unlock()

			close(batch.done)
			elapsed := time.Since(batch.started)
			c.metrics.ResubscribeCompleted(succeeded, failed, elapsed)
			c.logger.Info("rta resubscribe complete",
				"succeeded", succeeded, "failed", failed, "duration", elapsed)
			if fn != nil {
				fn(err)
			}
			return
		}
		events := c.queued
		c.queued = nil
		c.mu.Unlock()

		for _, ev := range events {
			c.deliver(ev.id, ev.payload)
		}
	}
}

// nextSeqLocked returns the next request sequence number, skipping 0.
func (c *Connection) nextSeqLocked() uint32 {
	c.seq++
	if c.seq == 0 {
		c.seq = 1
	}
	return c.seq
}

func (c *Connection) updateActive() {
	c.metrics.ActiveSubscriptions(len(c.registry.InState(subscription.StateSubscribed)))
}

func (c *Connection) eventHandler(kind resource.Kind, onEvent subscription.EventHandler) subscription.EventHandler {
	name := kind.String()
	return func(ev resource.Event) {
		c.metrics.EventDelivered(name)
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

func (c *Connection) errorHandler(kind resource.Kind, onError subscription.ErrorHandler) subscription.ErrorHandler {
	name := kind.String()
	return func(ev subscription.ErrorEvent) {
		c.metrics.SubscriptionError(name, ev.Code.String())
		code := int(ev.Code)
		c.logEvent(rtalog.Event{
			Layer:    rtalog.LayerService,
			Category: rtalog.CategoryError,
			Error: &rtalog.ErrorEventData{
				Layer:       rtalog.LayerService,
				Message:     ev.Message,
				Code:        &code,
				Context:     ev.Code.String(),
				ResourceURI: ev.Subscription.URI(),
			},
		})
		c.logger.Debug("rta subscription error", "uri", ev.Subscription.URI(), "code", ev.Code, "error", ev.Err)
		onError(ev)
	}
}
