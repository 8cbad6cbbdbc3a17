package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketConnection is the subset of *websocket.Conn the transport uses.
type WebsocketConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
	Subprotocol() string
}

// FrameConn sends and receives whole RTA frames.
// Implemented by Conn.
type FrameConn interface {
	// Send writes one frame.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until the next frame arrives.
	Receive() ([]byte, error)

	// Close closes the connection.
	Close() error
}

// TokenSource supplies the Authorization header for each dial.
type TokenSource interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// Compile-time interface satisfaction checks.
var (
	_ WebsocketConnection = (*websocket.Conn)(nil)
	_ FrameConn           = (*Conn)(nil)
	_ TokenSource         = XBLToken{}
	_ TokenSource         = StaticHeader("")
	_ TokenSource         = TokenSourceFunc(nil)
)
