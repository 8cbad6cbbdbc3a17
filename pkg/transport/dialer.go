package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xbl-rta/rta-go/pkg/wire"
)

// DefaultURL is the production RTA endpoint.
const DefaultURL = "wss://rta.xboxlive.com/connect"

// Transport defaults.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultMaxMessageSize   = 1 << 20
)

// Dial errors.
var (
	ErrNoTokenSource = errors.New("token source is required")
	ErrSubprotocol   = errors.New("service did not accept the RTA sub-protocol")
)

// Config configures a Dialer.
type Config struct {
	// URL is the websocket endpoint (default: DefaultURL).
	URL string

	// Tokens supplies the Authorization header. Required.
	Tokens TokenSource

	// Header holds extra handshake headers.
	Header http.Header

	// TLSConfig overrides the TLS client configuration.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds the opening handshake (default: 30s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each frame write (default: 10s).
	WriteTimeout time.Duration

	// MaxMessageSize caps inbound frames (default: 1 MiB).
	MaxMessageSize int64

	// KeepAlive configures ping/pong liveness checks.
	KeepAlive KeepAliveConfig

	// PongHandler, if set, is called for every pong that answers the
	// latest ping.
	PongHandler func(seq uint32, latency time.Duration)

	// Logger receives transport logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Dialer opens RTA websocket connections.
type Dialer struct {
	config Config
	ws     *websocket.Dialer
}

// NewDialer creates a dialer.
func NewDialer(config Config) (*Dialer, error) {
	if config.Tokens == nil {
		return nil, ErrNoTokenSource
	}
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Dialer{
		config: config,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			TLSClientConfig:  config.TLSConfig,
			Subprotocols:     []string{wire.Subprotocol},
		},
	}, nil
}

// URL returns the endpoint the dialer connects to.
func (d *Dialer) URL() string {
	return d.config.URL
}

// Dial opens a connection. A fresh Authorization header is requested from the
// token source on every call.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	auth, err := d.config.Tokens.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	header := http.Header{}
	for k, vs := range d.config.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set("Authorization", auth)

	ws, resp, err := d.ws.DialContext(ctx, d.config.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (HTTP %d)", d.config.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.config.URL, err)
	}
	if ws.Subprotocol() != wire.Subprotocol {
		ws.Close()
		return nil, fmt.Errorf("%w: got %q", ErrSubprotocol, ws.Subprotocol())
	}

	d.config.Logger.Debug("rta websocket connected", "url", d.config.URL)
	return newConn(ws, d.config), nil
}
