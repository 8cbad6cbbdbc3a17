// Package commands implements the rta-log CLI commands.
package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/wire"
)

// FilterOptions holds the textual filter flags shared by view and filter.
type FilterOptions struct {
	ConnID         string
	TimeStart      string
	TimeEnd        string
	Layer          string
	Direction      string
	Category       string
	SubscriptionID string
	Resource       string
	MessageType    string
}

// Build parses the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		ResourceURI:  o.Resource,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := ParseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.SubscriptionID != "" {
		id, err := strconv.ParseUint(o.SubscriptionID, 10, 32)
		if err != nil {
			return filter, fmt.Errorf("invalid subscription id: %s", o.SubscriptionID)
		}
		v := uint32(id)
		filter.SubscriptionID = &v
	}
	if o.MessageType != "" {
		mt, err := ParseMessageType(o.MessageType)
		if err != nil {
			return filter, err
		}
		filter.MessageType = &mt
	}
	return filter, nil
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
	}
}

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state, or error)", s)
	}
}

// ParseMessageType parses an RTA message type name (case-insensitive).
func ParseMessageType(s string) (wire.MessageType, error) {
	for _, mt := range []wire.MessageType{
		wire.MessageTypeSubscribe,
		wire.MessageTypeUnsubscribe,
		wire.MessageTypeEvent,
		wire.MessageTypeResync,
	} {
		if strings.EqualFold(mt.String(), s) {
			return mt, nil
		}
	}
	return 0, fmt.Errorf("invalid message type: %s (must be subscribe, unsubscribe, event, or resync)", s)
}
