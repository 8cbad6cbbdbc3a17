// Package config loads rta-monitor settings from YAML files and RTA_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xbl-rta/rta-go/pkg/connection"
	"github.com/xbl-rta/rta-go/pkg/transport"
)

// EnvPrefix prefixes environment overrides: RTA_AUTH_TOKEN sets auth.token.
const EnvPrefix = "RTA"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full client configuration.
type Config struct {
	Endpoint  EndpointConfig  `mapstructure:"endpoint"`
	Auth      AuthConfig      `mapstructure:"auth"`
	KeepAlive KeepAliveConfig `mapstructure:"keepalive"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Watchlist is a YAML file of resources to subscribe at startup.
	Watchlist string `mapstructure:"watchlist"`
}

// EndpointConfig describes the websocket endpoint.
type EndpointConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`

	// MaxRequestsPerSecond paces subscribe and unsubscribe frames. Zero
	// disables pacing.
	MaxRequestsPerSecond float64 `mapstructure:"max_requests_per_second"`
}

// AuthConfig holds the XBL credentials. Either Header or both UserHash and
// Token must be set.
type AuthConfig struct {
	UserHash string `mapstructure:"user_hash"`
	Token    string `mapstructure:"token"`

	// Header is a complete Authorization header value.
	Header string `mapstructure:"header"`
}

// KeepAliveConfig mirrors transport.KeepAliveConfig.
type KeepAliveConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongTimeout    time.Duration `mapstructure:"pong_timeout"`
	MaxMissedPongs int           `mapstructure:"max_missed_pongs"`
}

// ReconnectConfig mirrors connection.BackoffConfig.
type ReconnectConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
	Jitter         float64       `mapstructure:"jitter"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig controls operational and protocol logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	// ProtocolLog is a path for CBOR protocol capture. Empty disables it.
	ProtocolLog string `mapstructure:"protocol_log"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9090". Empty disables the server.
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	ka := transport.DefaultKeepAliveConfig()
	bo := connection.DefaultBackoffConfig()
	return Config{
		Endpoint: EndpointConfig{
			URL:              transport.DefaultURL,
			HandshakeTimeout: transport.DefaultHandshakeTimeout,
			WriteTimeout:     transport.DefaultWriteTimeout,
			MaxMessageSize:   transport.DefaultMaxMessageSize,
		},
		KeepAlive: KeepAliveConfig{
			PingInterval:   ka.PingInterval,
			PongTimeout:    ka.PongTimeout,
			MaxMissedPongs: ka.MaxMissedPongs,
		},
		Reconnect: ReconnectConfig{
			Enabled:        true,
			InitialBackoff: bo.Initial,
			MaxBackoff:     bo.Max,
			Multiplier:     bo.Multiplier,
			Jitter:         bo.Jitter,
			MaxAttempts:    bo.MaxAttempts,
			ConnectTimeout: connection.DefaultConnectTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("endpoint.url", d.Endpoint.URL)
	v.SetDefault("endpoint.handshake_timeout", d.Endpoint.HandshakeTimeout)
	v.SetDefault("endpoint.write_timeout", d.Endpoint.WriteTimeout)
	v.SetDefault("endpoint.max_message_size", d.Endpoint.MaxMessageSize)
	v.SetDefault("endpoint.max_requests_per_second", d.Endpoint.MaxRequestsPerSecond)
	v.SetDefault("auth.user_hash", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.header", "")
	v.SetDefault("keepalive.ping_interval", d.KeepAlive.PingInterval)
	v.SetDefault("keepalive.pong_timeout", d.KeepAlive.PongTimeout)
	v.SetDefault("keepalive.max_missed_pongs", d.KeepAlive.MaxMissedPongs)
	v.SetDefault("reconnect.enabled", d.Reconnect.Enabled)
	v.SetDefault("reconnect.initial_backoff", d.Reconnect.InitialBackoff)
	v.SetDefault("reconnect.max_backoff", d.Reconnect.MaxBackoff)
	v.SetDefault("reconnect.multiplier", d.Reconnect.Multiplier)
	v.SetDefault("reconnect.jitter", d.Reconnect.Jitter)
	v.SetDefault("reconnect.max_attempts", d.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.connect_timeout", d.Reconnect.ConnectTimeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.protocol_log", d.Logging.ProtocolLog)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("watchlist", d.Watchlist)
}

// Load reads the configuration file at path, if any, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load using a caller-supplied viper instance, so that command
// line flags bound to v take precedence.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges. Credentials are not required here; the
// dialer rejects a missing token source.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint.URL == "":
		return fmt.Errorf("%w: endpoint.url is empty", ErrInvalid)
	case !strings.HasPrefix(c.Endpoint.URL, "ws://") && !strings.HasPrefix(c.Endpoint.URL, "wss://"):
		return fmt.Errorf("%w: endpoint.url %q is not a websocket URL", ErrInvalid, c.Endpoint.URL)
	case c.Endpoint.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: endpoint.handshake_timeout must be positive", ErrInvalid)
	case c.Endpoint.WriteTimeout <= 0:
		return fmt.Errorf("%w: endpoint.write_timeout must be positive", ErrInvalid)
	case c.Endpoint.MaxMessageSize <= 0:
		return fmt.Errorf("%w: endpoint.max_message_size must be positive", ErrInvalid)
	case c.Endpoint.MaxRequestsPerSecond < 0:
		return fmt.Errorf("%w: endpoint.max_requests_per_second must not be negative", ErrInvalid)
	case c.KeepAlive.PingInterval <= 0 || c.KeepAlive.PongTimeout <= 0:
		return fmt.Errorf("%w: keepalive intervals must be positive", ErrInvalid)
	case c.KeepAlive.PongTimeout >= c.KeepAlive.PingInterval:
		return fmt.Errorf("%w: keepalive.pong_timeout must be shorter than keepalive.ping_interval", ErrInvalid)
	case c.KeepAlive.MaxMissedPongs < 1:
		return fmt.Errorf("%w: keepalive.max_missed_pongs must be at least 1", ErrInvalid)
	case c.Reconnect.InitialBackoff <= 0 || c.Reconnect.MaxBackoff < c.Reconnect.InitialBackoff:
		return fmt.Errorf("%w: reconnect backoff must satisfy 0 < initial <= max", ErrInvalid)
	case c.Reconnect.Multiplier < 1:
		return fmt.Errorf("%w: reconnect.multiplier must be at least 1", ErrInvalid)
	case c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1:
		return fmt.Errorf("%w: reconnect.jitter must be within [0,1]", ErrInvalid)
	case c.Reconnect.MaxAttempts < 0:
		return fmt.Errorf("%w: reconnect.max_attempts must not be negative", ErrInvalid)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: logging.format %q (want text or json)", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return l, nil
}

// TokenSource returns the credentials as a transport.TokenSource, or nil when
// none are configured.
func (c *Config) TokenSource() transport.TokenSource {
	switch {
	case c.Auth.Header != "":
		return transport.StaticHeader(c.Auth.Header)
	case c.Auth.Token != "":
		return transport.XBLToken{UserHash: c.Auth.UserHash, Token: c.Auth.Token}
	}
	return nil
}

// TransportConfig converts the endpoint and keep-alive sections.
func (c *Config) TransportConfig(logger *slog.Logger) transport.Config {
	return transport.Config{
		URL:              c.Endpoint.URL,
		Tokens:           c.TokenSource(),
		HandshakeTimeout: c.Endpoint.HandshakeTimeout,
		WriteTimeout:     c.Endpoint.WriteTimeout,
		MaxMessageSize:   c.Endpoint.MaxMessageSize,
		KeepAlive: transport.KeepAliveConfig{
			PingInterval:   c.KeepAlive.PingInterval,
			PongTimeout:    c.KeepAlive.PongTimeout,
			MaxMissedPongs: c.KeepAlive.MaxMissedPongs,
		},
		Logger: logger,
	}
}

// ConnectionConfig converts the reconnect section.
func (c *Config) ConnectionConfig(logger *slog.Logger) connection.Config {
	return connection.Config{
		Backoff: connection.BackoffConfig{
			Initial:     c.Reconnect.InitialBackoff,
			Max:         c.Reconnect.MaxBackoff,
			Multiplier:  c.Reconnect.Multiplier,
			Jitter:      c.Reconnect.Jitter,
			MaxAttempts: c.Reconnect.MaxAttempts,
		},
		ConnectTimeout:       c.Reconnect.ConnectTimeout,
		DisableAutoReconnect: !c.Reconnect.Enabled,
		Logger:               logger,
	}
}
