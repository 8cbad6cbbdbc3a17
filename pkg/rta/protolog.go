package rta

import (
	"time"

	rtalog "github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/subscription"
	"github.com/xbl-rta/rta-go/pkg/wire"
)

// logEvent stamps event with the time and connection id and records it.
func (c *Connection) logEvent(event rtalog.Event) {
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	c.mu.Lock()
	event.ConnectionID = c.connID
	c.mu.Unlock()
	event.Timestamp = time.Now()
	c.protoLog.Log(event)
}

func (c *Connection) logOutbound(msg *rtalog.MessageEvent) {
	c.logEvent(rtalog.Event{
		Direction: rtalog.DirectionOut,
		Layer:     rtalog.LayerWire,
		Category:  rtalog.CategoryMessage,
		Message:   msg,
	})
}

func (c *Connection) logInbound(frame wire.Frame) {
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	msg := &rtalog.MessageEvent{
		Type:           frame.Type,
		Sequence:       frame.Sequence,
		SubscriptionID: frame.SubscriptionID,
		ResourceURI:    c.frameURI(frame),
		ErrorMessage:   frame.Message,
	}
	if frame.Data.Exists() {
		msg.Payload = frame.Data.Raw
	}
	if frame.Type == wire.MessageTypeSubscribe || frame.Type == wire.MessageTypeUnsubscribe {
		status := frame.Status
		msg.Status = &status
	}
	c.logEvent(rtalog.Event{
		Direction: rtalog.DirectionIn,
		Layer:     rtalog.LayerWire,
		Category:  rtalog.CategoryMessage,
		Message:   msg,
	})
}

// frameURI names the resource a frame refers to, if it is still known.
func (c *Connection) frameURI(frame wire.Frame) string {
	var sub *subscription.Subscription
	switch frame.Type {
	case wire.MessageTypeSubscribe:
		c.mu.Lock()
		sub = c.pendingSubs[frame.Sequence].sub
		c.mu.Unlock()
	case wire.MessageTypeUnsubscribe:
		c.mu.Lock()
		sub = c.pendingUnsubs[frame.Sequence].sub
		c.mu.Unlock()
	case wire.MessageTypeEvent:
		sub, _ = c.registry.ByID(frame.SubscriptionID)
	}
	if sub == nil {
		return ""
	}
	return sub.URI()
}

func (c *Connection) logSubscriptionState(sub *subscription.Subscription, reason string) {
	c.logEvent(rtalog.Event{
		Layer:    rtalog.LayerService,
		Category: rtalog.CategoryState,
		StateChange: &rtalog.StateChangeEvent{
			Entity:      rtalog.StateEntitySubscription,
			NewState:    sub.State().String(),
			Reason:      reason,
			ResourceURI: sub.URI(),
		},
	})
}
