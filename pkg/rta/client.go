package rta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/xbl-rta/rta-go/pkg/connection"
	rtalog "github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/metrics"
	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/subscription"
	"github.com/xbl-rta/rta-go/pkg/transport"
	"github.com/xbl-rta/rta-go/pkg/wire"
)

// DefaultResubscribeTimeout bounds the wait for resubscribe responses after
// a connect.
const DefaultResubscribeTimeout = 30 * time.Second

// Client errors.
var (
	ErrClientClosed   = errors.New("rta: client closed")
	ErrConnectionLost = errors.New("rta: connection lost")
)

// Config configures a Client.
type Config struct {
	// Transport configures the websocket. Transport.Tokens is required.
	Transport transport.Config

	// Connection configures reconnects.
	Connection connection.Config

	// ResubscribeTimeout bounds the wait for resubscribe responses.
	ResubscribeTimeout time.Duration

	// MaxRequestsPerSecond paces outbound subscribe and unsubscribe frames.
	// Zero means unlimited.
	MaxRequestsPerSecond float64

	Logger         *slog.Logger
	ProtocolLogger rtalog.Logger
	Metrics        metrics.Collector
}

// Client is an RTA websocket session with automatic reconnects. All
// exported methods are safe for concurrent use.
type Client struct {
	dialer   *transport.Dialer
	manager  *connection.Manager
	conn     *Connection
	logger   *slog.Logger
	protoLog rtalog.Logger
	metrics  metrics.Collector
	resubTTL time.Duration
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	ws      *transport.Conn
	connID  string
	closing bool
}

// NewClient creates a client. Call Start to connect.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Transport.Logger == nil {
		cfg.Transport.Logger = logger
	}
	if cfg.Connection.Logger == nil {
		cfg.Connection.Logger = logger
	}
	if cfg.ResubscribeTimeout <= 0 {
		cfg.ResubscribeTimeout = DefaultResubscribeTimeout
	}
	if cfg.Connection.Backoff == (connection.BackoffConfig{}) {
		cfg.Connection.Backoff = connection.DefaultBackoffConfig()
	}

	c := &Client{
		logger:   logger,
		protoLog: rtalog.OrNoop(cfg.ProtocolLogger),
		metrics:  metrics.OrNoop(cfg.Metrics),
		resubTTL: cfg.ResubscribeTimeout,
	}
	if cfg.MaxRequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), 1)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	cfg.Transport.PongHandler = c.handlePong
	dialer, err := transport.NewDialer(cfg.Transport)
	if err != nil {
		return nil, err
	}
	c.dialer = dialer

	c.conn = NewConnection(c, ConnectionConfig{
		Logger:         logger,
		ProtocolLogger: cfg.ProtocolLogger,
		Metrics:        cfg.Metrics,
	})

	c.manager = connection.NewManagerWithConfig(c.dial, cfg.Connection)
	c.manager.OnStateChange(c.handleStateChange)
	c.manager.OnConnected(c.handleConnected)
	c.manager.OnReconnecting(func(attempt int, delay time.Duration) {
		c.metrics.ReconnectAttempt()
		c.logger.Info("rta reconnecting", "attempt", attempt, "delay", delay)
	})
	c.manager.OnGiveUp(func(err error) {
		c.logger.Error("rta giving up", "error", err)
		c.conn.Close(err)
	})
	return c, nil
}

// Connection returns the subscription engine.
func (c *Client) Connection() *Connection {
	return c.conn
}

// State returns the connection lifecycle state.
func (c *Client) State() connection.State {
	return c.manager.State()
}

// Start connects and launches the reconnect loop. When the first dial fails
// the error is returned and, with auto-reconnect enabled, the loop keeps
// trying in the background.
func (c *Client) Start(ctx context.Context) error {
	c.manager.Start()
	err := c.manager.Connect(ctx)
	if err != nil && !errors.Is(err, connection.ErrConnectionClosed) {
		c.manager.ScheduleReconnect(err)
	}
	return err
}

// Close disconnects and aborts every subscription. It waits for background
// goroutines to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	c.cancel()
	var err error
	if ws != nil {
		err = ws.Close()
	}
	c.manager.Close()
	c.wg.Wait()
	c.conn.Close(ErrClientClosed)
	return err
}

// Subscribe subscribes to any resource kind. See Connection.Subscribe.
func (c *Client) Subscribe(ctx context.Context, kind resource.Kind, params resource.Params,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.conn.Subscribe(ctx, kind, params, onEvent, onError)
}

// Unsubscribe ends a subscription. See Connection.Unsubscribe.
func (c *Client) Unsubscribe(ctx context.Context, sub *subscription.Subscription) error {
	return c.conn.Unsubscribe(ctx, sub)
}

// Subscriptions returns every registered subscription ordered by URI.
func (c *Client) Subscriptions() []*subscription.Subscription {
	return c.conn.Subscriptions()
}

// SubscribeDevicePresence watches the devices xuid is signed in on.
func (c *Client) SubscribeDevicePresence(ctx context.Context, xuid string,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindDevicePresence, resource.Params{XboxUserID: xuid}, onEvent, onError)
}

// SubscribeTitlePresence watches xuid starting and ending titleID.
func (c *Client) SubscribeTitlePresence(ctx context.Context, xuid string, titleID uint32,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindTitlePresence,
		resource.Params{XboxUserID: xuid, TitleID: titleID}, onEvent, onError)
}

// SubscribeStatistic watches one statistic of xuid.
func (c *Client) SubscribeStatistic(ctx context.Context, xuid, scid, stat string,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindStatistic,
		resource.Params{XboxUserID: xuid, ServiceConfigID: scid, StatisticName: stat}, onEvent, onError)
}

// SubscribeSocialRelationships watches the friends list of xuid.
func (c *Client) SubscribeSocialRelationships(ctx context.Context, xuid string,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindSocialRelationship, resource.Params{XboxUserID: xuid}, onEvent, onError)
}

// SubscribeMultiplayerSession receives multiplayer shoulder taps. The
// resource is the connection itself, not a user: there is at most one such
// subscription per client, and a second call fails with
// subscription.ErrDuplicateResource. The first event carries the connection
// id to attach to session documents.
func (c *Client) SubscribeMultiplayerSession(ctx context.Context,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindMultiplayerSession, resource.Params{}, onEvent, onError)
}

// SubscribeAchievementProgress watches achievement progress of xuid in scid.
func (c *Client) SubscribeAchievementProgress(ctx context.Context, xuid, scid string,
	onEvent subscription.EventHandler, onError subscription.ErrorHandler) (*subscription.Subscription, error) {
	return c.Subscribe(ctx, resource.KindAchievementProgress,
		resource.Params{XboxUserID: xuid, ServiceConfigID: scid}, onEvent, onError)
}

// SendSubscribe implements Sender over the current socket.
func (c *Client) SendSubscribe(ctx context.Context, seq uint32, uri string) error {
	data, err := wire.EncodeSubscribe(seq, uri)
	if err != nil {
		return err
	}
	return c.send(ctx, data)
}

// SendUnsubscribe implements Sender over the current socket.
func (c *Client) SendUnsubscribe(ctx context.Context, seq uint32, id uint32) error {
	data, err := wire.EncodeUnsubscribe(seq, id)
	if err != nil {
		return err
	}
	return c.send(ctx, data)
}

func (c *Client) send(ctx context.Context, data []byte) error {
	ws, connID := c.current()
	if ws == nil {
		return ErrNotConnected
	}
	if c.limiter != nil {
		// Blocks until there is room to send, or fails when the wait would
		// outlast ctx.
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	c.logFrame(connID, rtalog.DirectionOut, data)
	if err := ws.Send(ctx, data); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// Any write failure means the socket is unusable.
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

func (c *Client) current() (*transport.Conn, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws, c.connID
}

// dial is the connection.ConnectFunc.
func (c *Client) dial(ctx context.Context) error {
	ws, err := c.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	connID := uuid.NewString()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		ws.Close()
		return ErrClientClosed
	}
	c.ws = ws
	c.connID = connID
	c.mu.Unlock()

	c.conn.SetConnectionID(connID)
	c.logger.Debug("rta socket open", "conn_id", connID, "url", c.dialer.URL())

	c.wg.Add(1)
	go c.readPump(ws, connID)
	ws.StartKeepAlive(c.ctx, func() {
		c.logger.Warn("rta keep-alive timed out", "conn_id", connID)
		ws.Close()
	})
	return nil
}

// handleConnected runs after every successful dial, before the manager
// accepts another state change from the reconnect loop.
func (c *Client) handleConnected() {
	ws, _ := c.current()
	if ws == nil || isDone(ws) {
		// The socket died between dial and now; the read pump could not
		// report it while the manager was still connecting.
		c.manager.NotifyConnectionLost(ErrConnectionLost)
		return
	}

	if err := c.manager.BeginResubscribe(); err != nil {
		c.logger.Debug("rta resubscribe not started", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.resubTTL)
	err := c.conn.OnReconnected(ctx)
	cancel()
	if err != nil {
		c.logger.Warn("rta resubscribe incomplete", "error", err)
	}
	if err := c.manager.ResubscribeComplete(); err != nil {
		c.logger.Debug("rta resubscribe interrupted", "error", err)
	}
	if isDone(ws) {
		c.manager.NotifyConnectionLost(ErrConnectionLost)
	}
}

func (c *Client) handleStateChange(oldState, newState connection.State) {
	c.metrics.ConnectionState(newState.String())

	c.mu.Lock()
	connID := c.connID
	c.mu.Unlock()
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	c.protoLog.Log(rtalog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        rtalog.LayerService,
		Category:     rtalog.CategoryState,
		Endpoint:     c.dialer.URL(),
		StateChange: &rtalog.StateChangeEvent{
			Entity:   rtalog.StateEntityConnection,
			OldState: oldState.String(),
			NewState: newState.String(),
		},
	})
}

// readPump is the single inbound path for one socket.
func (c *Client) readPump(ws *transport.Conn, connID string) {
	defer c.wg.Done()

	for {
		data, err := ws.Receive()
		if err != nil {
			c.handleLost(ws, err)
			return
		}
		c.logFrame(connID, rtalog.DirectionIn, data)

		frame, err := wire.Decode(data)
		if err != nil {
			c.logger.Warn("rta dropping malformed frame", "error", err, "size", len(data))
			c.logDecodeError(connID, err)
			continue
		}
		c.conn.HandleFrame(frame)
	}
}

func (c *Client) handleLost(ws *transport.Conn, cause error) {
	ws.Close()

	c.mu.Lock()
	closing := c.closing
	current := c.ws == ws
	if current {
		c.ws = nil
	}
	c.mu.Unlock()

	if closing || !current {
		return
	}
	c.logger.Warn("rta socket lost", "error", cause)
	c.conn.OnDisconnected()
	c.manager.NotifyConnectionLost(cause)
}

func (c *Client) handlePong(seq uint32, latency time.Duration) {
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	_, connID := c.current()
	c.protoLog.Log(rtalog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    rtalog.DirectionIn,
		Layer:        rtalog.LayerTransport,
		Category:     rtalog.CategoryControl,
		ControlMsg:   &rtalog.ControlMsgEvent{Type: rtalog.ControlMsgPong, Sequence: seq},
	})
	c.logger.Debug("rta pong", "seq", seq, "latency", latency)
}

func (c *Client) logFrame(connID string, dir rtalog.Direction, data []byte) {
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	c.protoLog.Log(rtalog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        rtalog.LayerTransport,
		Category:     rtalog.CategoryMessage,
		Frame:        rtalog.NewFrameEvent(data),
	})
}

func (c *Client) logDecodeError(connID string, err error) {
	if _, noop := c.protoLog.(rtalog.NoopLogger); noop {
		return
	}
	c.protoLog.Log(rtalog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    rtalog.DirectionIn,
		Layer:        rtalog.LayerWire,
		Category:     rtalog.CategoryError,
		Error: &rtalog.ErrorEventData{
			Layer:   rtalog.LayerWire,
			Message: err.Error(),
			Context: "decode frame",
		},
	})
}

func isDone(ws *transport.Conn) bool {
	select {
	case <-ws.Done():
		return true
	default:
		return false
	}
}

var _ Sender = (*Client)(nil)
