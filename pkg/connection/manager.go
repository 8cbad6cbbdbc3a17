package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrNotConnected      = errors.New("not connected")
	ErrReconnectGaveUp   = errors.New("reconnect attempts exhausted")
	ErrInvalidTransition = errors.New("invalid connection state transition")
)

// DefaultConnectTimeout bounds a single reconnect attempt.
const DefaultConnectTimeout = 30 * time.Second

// State is the connection lifecycle state.
type State uint8

const (
	// StateDisconnected indicates no socket.
	StateDisconnected State = iota

	// StateConnecting indicates a dial is in progress.
	StateConnecting

	// StateConnected indicates an established socket.
	StateConnected

	// StateResubscribing indicates an established socket whose
	// subscriptions are being re-established.
	StateResubscribing

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateResubscribing:
		return "RESUBSCRIBING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes the underlying connection.
type ConnectFunc func(ctx context.Context) error

// Config configures a Manager.
type Config struct {
	// Backoff controls reconnect delays.
	Backoff BackoffConfig

	// ConnectTimeout bounds each reconnect attempt.
	ConnectTimeout time.Duration

	// DisableAutoReconnect leaves the manager Disconnected after a loss.
	DisableAutoReconnect bool

	// Logger receives lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Manager owns the connection state machine and the reconnect loop.
type Manager struct {
	mu sync.RWMutex

	state         State
	backoff       *Backoff
	connectFn     ConnectFunc
	autoReconnect bool
	timeout       time.Duration
	logger        *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func(err error)
	onReconnecting func(attempt int, delay time.Duration)
	onGiveUp       func(err error)
}

// NewManager creates a manager with default configuration.
func NewManager(connectFn ConnectFunc) *Manager {
	return NewManagerWithConfig(connectFn, Config{Backoff: DefaultBackoffConfig()})
}

// NewManagerWithConfig creates a manager.
func NewManagerWithConfig(connectFn ConnectFunc, cfg Config) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:         StateDisconnected,
		backoff:       NewBackoffWithConfig(cfg.Backoff),
		connectFn:     connectFn,
		autoReconnect: !cfg.DisableAutoReconnect,
		timeout:       cfg.ConnectTimeout,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the socket is up, including while
// resubscribing.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected || m.state == StateResubscribing
}

// SetAutoReconnect enables or disables reconnection after a loss.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// BackoffAttempts returns the number of reconnect attempts since the last
// successful connect.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// Start launches the reconnect loop. Calling it more than once has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.reconnectLoop()
	})
}

// Connect performs the first connection attempt synchronously.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected, StateResubscribing, StateConnecting:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrConnectionClosed
	}
	notify := m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	notify()

	return m.dial(ctx)
}

// dial runs connectFn from StateConnecting and applies the result.
func (m *Manager) dial(ctx context.Context) error {
	err := m.connectFn(ctx)

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		if err == nil {
			return ErrConnectionClosed
		}
		return err
	}
	if err != nil {
		notify := m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		notify()
		return err
	}
	notify := m.setStateLocked(StateConnected)
	onConnected := m.onConnected
	m.backoff.Reset()
	m.mu.Unlock()

	notify()
	m.logger.Info("rta connection established")
	if onConnected != nil {
		onConnected()
	}
	return nil
}

// NotifyConnectionLost reports that the socket dropped. A reconnect is
// scheduled when auto-reconnect is enabled.
func (m *Manager) NotifyConnectionLost(cause error) {
	m.mu.Lock()
	if m.state != StateConnected && m.state != StateResubscribing {
		m.mu.Unlock()
		return
	}
	notify := m.setStateLocked(StateDisconnected)
	autoReconnect := m.autoReconnect
	onDisconnected := m.onDisconnected
	m.mu.Unlock()

	notify()
	m.logger.Warn("rta connection lost", "error", cause, "reconnect", autoReconnect)
	if onDisconnected != nil {
		onDisconnected(cause)
	}
	if autoReconnect {
		m.triggerReconnect()
	}
}

// ScheduleReconnect starts the reconnect loop after a failed Connect. It does
// nothing unless the manager is Disconnected with auto-reconnect enabled.
func (m *Manager) ScheduleReconnect(cause error) {
	m.mu.RLock()
	ok := m.state == StateDisconnected && m.autoReconnect
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.logger.Warn("rta connect failed, retrying in background", "error", cause)
	m.triggerReconnect()
}

// BeginResubscribe moves Connected to Resubscribing.
func (m *Manager) BeginResubscribe() error {
	return m.move(StateConnected, StateResubscribing)
}

// ResubscribeComplete moves Resubscribing back to Connected.
func (m *Manager) ResubscribeComplete() error {
	return m.move(StateResubscribing, StateConnected)
}

func (m *Manager) move(from, to State) error {
	m.mu.Lock()
	if m.state != from {
		cur := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, to)
	}
	notify := m.setStateLocked(to)
	m.mu.Unlock()
	notify()
	return nil
}

// Close stops the reconnect loop and moves to StateClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	notify := m.setStateLocked(StateClosed)
	m.mu.Unlock()
	notify()

	m.cancel()
	m.wg.Wait()
}

// setStateLocked changes state and returns a func that runs the state change
// callback. Caller must hold m.mu and call the func after unlocking.
func (m *Manager) setStateLocked(to State) func() {
	from := m.state
	m.state = to
	fn := m.onStateChange
	return func() {
		if fn != nil && from != to {
			fn(from, to)
		}
	}
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect retries until connected, closed or out of attempts.
func (m *Manager) attemptReconnect() {
	for {
		if m.State() != StateDisconnected {
			return
		}

		delay := m.backoff.Next()
		attempt := m.backoff.Attempts()

		m.mu.RLock()
		onReconnecting := m.onReconnecting
		m.mu.RUnlock()
		if onReconnecting != nil {
			onReconnecting(attempt, delay)
		}
		m.logger.Debug("rta reconnect scheduled", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-m.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.state != StateDisconnected {
			m.mu.Unlock()
			return
		}
		notify := m.setStateLocked(StateConnecting)
		m.mu.Unlock()
		notify()

		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
		err := m.dial(ctx)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrConnectionClosed) {
			return
		}

		m.logger.Warn("rta reconnect failed", "attempt", attempt, "error", err)
		if m.backoff.Exhausted() {
			m.mu.RLock()
			onGiveUp := m.onGiveUp
			m.mu.RUnlock()
			m.logger.Error("rta reconnect gave up", "attempts", attempt)
			if onGiveUp != nil {
				onGiveUp(fmt.Errorf("%w after %d attempts: %v", ErrReconnectGaveUp, attempt, err))
			}
			return
		}
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for every successful connect.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for connection loss.
func (m *Manager) OnDisconnected(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback invoked before each reconnect delay.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// OnGiveUp sets a callback invoked when MaxAttempts reconnects have failed.
func (m *Manager) OnGiveUp(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGiveUp = fn
}
