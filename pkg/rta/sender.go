package rta

import "context"

// Sender writes outbound RTA requests. A nil error means the frame was
// written; the outcome arrives later as a response frame.
type Sender interface {
	SendSubscribe(ctx context.Context, seq uint32, uri string) error
	SendUnsubscribe(ctx context.Context, seq uint32, id uint32) error
}
