package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned by Send and Receive after Close or after the
// service closed the socket.
var ErrConnectionClosed = errors.New("connection closed")

// Conn is an open RTA websocket. Send may be called from any goroutine;
// Receive must be called from a single reader goroutine.
type Conn struct {
	ws           WebsocketConnection
	writeTimeout time.Duration
	logger       *slog.Logger
	keepAlive    *KeepAlive
	kaConfig     KeepAliveConfig
	onPong       func(seq uint32, latency time.Duration)

	closeOnce sync.Once
	closeCh   chan struct{}
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

func newConn(ws WebsocketConnection, config Config) *Conn {
	ws.SetReadLimit(config.MaxMessageSize)
	c := &Conn{
		ws:           ws,
		writeTimeout: config.WriteTimeout,
		logger:       config.Logger,
		kaConfig:     config.KeepAlive,
		onPong:       config.PongHandler,
		closeCh:      make(chan struct{}),
	}
	ws.SetPongHandler(c.handlePong)
	return c
}

// NewConn wraps an established websocket. It is used by tests and by callers
// that dial with their own websocket.Dialer.
func NewConn(ws WebsocketConnection, config Config) *Conn {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return newConn(ws, config)
}

// Send writes one text frame.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Receive blocks until the next text frame arrives. Binary frames are
// skipped.
func (c *Conn) Receive() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}

		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			}
			select {
			case <-c.closeCh:
				return nil, ErrConnectionClosed
			default:
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			c.logger.Debug("rta ignoring non-text frame", "type", mt)
			continue
		}
		return data, nil
	}
}

// StartKeepAlive begins pinging the service. onTimeout runs once when too
// many pongs are missed; it should close the connection.
func (c *Conn) StartKeepAlive(ctx context.Context, onTimeout func()) {
	c.writeMu.Lock()
	if c.keepAlive != nil {
		c.writeMu.Unlock()
		return
	}
	c.keepAlive = NewKeepAlive(c.kaConfig, c.sendPing, onTimeout)
	if c.onPong != nil {
		c.keepAlive.SetPongReceivedCallback(c.onPong)
	}
	ka := c.keepAlive
	c.writeMu.Unlock()

	ka.Start(ctx)
}

// KeepAliveStats returns ping/pong statistics, or zero stats when keep-alive
// is not running.
func (c *Conn) KeepAliveStats() KeepAliveStats {
	c.writeMu.Lock()
	ka := c.keepAlive
	c.writeMu.Unlock()
	if ka == nil {
		return KeepAliveStats{}
	}
	return ka.Stats()
}

func (c *Conn) sendPing(seq uint32) error {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], seq)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, payload[:], time.Now().Add(c.writeTimeout))
}

func (c *Conn) handlePong(appData string) error {
	if len(appData) != 4 {
		return nil
	}
	c.writeMu.Lock()
	ka := c.keepAlive
	c.writeMu.Unlock()
	if ka != nil {
		ka.PongReceived(binary.BigEndian.Uint32([]byte(appData)))
	}
	return nil
}

// Close sends a close frame and closes the socket. It is safe to call more
// than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)

		c.writeMu.Lock()
		ka := c.keepAlive
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		if ka != nil {
			ka.Stop()
		}
		err = c.ws.Close()
	})
	return err
}

// Done is closed when Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.closeCh
}
