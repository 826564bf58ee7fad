package tcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/uedlab/instctl/internal/util"
	"github.com/uedlab/instctl/logger"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 5 * time.Second
)

// Config holds all configuration for a TCP instrument connection.
type Config struct {
	host string
	port int

	connectTimeout time.Duration
	readTimeout    time.Duration

	// readTerminator ends a response; empty means one read per response.
	readTerminator string
	// writeTerminator is appended to outgoing commands when missing.
	writeTerminator string

	logger logger.Logger
}

// NewConfig creates a TCP connection configuration for host:port.
// host may be an IPv4 address or a hostname.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	cfg := &Config{
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		logger:         logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *Config) setHost(host string) error {
	if util.IsValidIP(host) {
		cfg.host = host
		return nil
	}

	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	if host == "" || strings.ContainsAny(host, " \t") {
		return fmt.Errorf("tcp: invalid host %q", host)
	}
	cfg.host = host

	return nil
}

func (cfg *Config) setPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("tcp: port %d out of range [0, 65535]", port)
	}
	cfg.port = port

	return nil
}

// Host returns the configured host.
func (cfg *Config) Host() string { return cfg.host }

// Port returns the configured port.
func (cfg *Config) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *Config) Addr() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// ConnectTimeout returns the dial timeout.
func (cfg *Config) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// ReadTimeout returns the per-response read timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// ReadTerminator returns the response terminator; empty means single-read framing.
func (cfg *Config) ReadTerminator() string { return cfg.readTerminator }

// WriteTerminator returns the terminator appended to outgoing commands.
func (cfg *Config) WriteTerminator() string { return cfg.writeTerminator }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option configures a Config; apply returns an error for invalid values.
type Option interface {
	apply(cfg *Config) error
}

type optionFunc func(cfg *Config) error

func (f optionFunc) apply(cfg *Config) error { return f(cfg) }

// WithConnectTimeout sets the dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("tcp: connect timeout %v is not positive", d)
		}
		cfg.connectTimeout = d
		return nil
	})
}

// WithReadTimeout sets the per-response read timeout.
func WithReadTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("tcp: read timeout %v is not positive", d)
		}
		cfg.readTimeout = d
		return nil
	})
}

// WithReadTerminator sets the response terminator. Empty selects single-read
// framing: each response is whatever one Read returns.
func WithReadTerminator(term string) Option {
	return optionFunc(func(cfg *Config) error {
		cfg.readTerminator = term
		return nil
	})
}

// WithWriteTerminator sets the terminator appended to outgoing commands.
func WithWriteTerminator(term string) Option {
	return optionFunc(func(cfg *Config) error {
		cfg.writeTerminator = term
		return nil
	})
}

// WithLogger sets the logger used by the connection.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(cfg *Config) error {
		if l == nil {
			return fmt.Errorf("tcp: logger is nil")
		}
		cfg.logger = l
		return nil
	})
}
