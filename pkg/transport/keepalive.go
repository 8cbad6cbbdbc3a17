package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongTimeout    = 10 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures ping/pong liveness checks.
type KeepAliveConfig struct {
	// PingInterval is the time between pings.
	PingInterval time.Duration

	// PongTimeout is how long a ping may stay unanswered.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive unanswered pings after
	// which the connection is considered dead.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAliveStats is a snapshot of keep-alive state.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	LastLatency  time.Duration
	MissedPongs  int
	CurrentSeq   uint32
}

// KeepAlive sends numbered pings and fires a timeout when too many go
// unanswered.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(seq uint32) error
	onTimeout func()

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	seq        uint32
	pending    bool
	stats      KeepAliveStats
	onPong     func(seq uint32, latency time.Duration)
	pongCh     chan uint32
	timeoutRun bool
}

// NewKeepAlive creates a keep-alive. Zero config fields take their defaults.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs <= 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return &KeepAlive{
		config:    config,
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 1),
	}
}

// SetPongReceivedCallback sets a callback for matched pongs.
func (ka *KeepAlive) SetPongReceivedCallback(cb func(seq uint32, latency time.Duration)) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.onPong = cb
}

// Start launches the ping loop. It returns immediately.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	stop := ka.stopCh
	ka.mu.Unlock()

	go ka.loop(ctx, stop)
}

// Stop ends the ping loop. It does not wait for the loop to exit.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// IsRunning reports whether the ping loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// PongReceived records a pong carrying seq.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// Stats returns a snapshot of keep-alive state.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	s := ka.stats
	s.CurrentSeq = ka.seq
	return s
}

func (ka *KeepAlive) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if ka.checkMissed() {
				ka.fireTimeout()
				return
			}
			ka.ping()
		case seq := <-ka.pongCh:
			ka.pong(seq)
		}
	}
}

func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	ka.seq++
	seq := ka.seq
	ka.pending = true
	ka.stats.LastPingTime = time.Now()
	ka.mu.Unlock()

	// A failed write leaves the ping pending; the missed-pong count catches it.
	_ = ka.sendPing(seq)
}

// checkMissed counts an overdue ping and reports whether the limit is hit.
func (ka *KeepAlive) checkMissed() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.pending || time.Since(ka.stats.LastPingTime) < ka.config.PongTimeout {
		return false
	}
	ka.pending = false
	ka.stats.MissedPongs++
	return ka.stats.MissedPongs >= ka.config.MaxMissedPongs
}

func (ka *KeepAlive) fireTimeout() {
	ka.mu.Lock()
	if ka.timeoutRun {
		ka.mu.Unlock()
		return
	}
	ka.timeoutRun = true
	ka.running = false
	ka.mu.Unlock()

	if ka.onTimeout != nil {
		ka.onTimeout()
	}
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	now := time.Now()
	ka.stats.LastPongTime = now

	// Late pongs for an earlier ping are ignored.
	if !ka.pending || seq != ka.seq {
		ka.mu.Unlock()
		return
	}
	ka.pending = false
	ka.stats.MissedPongs = 0
	ka.stats.LastLatency = now.Sub(ka.stats.LastPingTime)
	cb := ka.onPong
	latency := ka.stats.LastLatency
	ka.mu.Unlock()

	if cb != nil {
		cb(seq, latency)
	}
}
