package gpib

import (
	"fmt"
	"time"

	"github.com/uedlab/instctl/logger"
)

const (
	// DefaultReadTimeout is the controller-side read timeout programmed
	// with ++read_tmo_ms.
	DefaultReadTimeout = 500 * time.Millisecond

	// DefaultSRQPollInterval is how often WaitSRQ polls ++srq.
	DefaultSRQPollInterval = 50 * time.Millisecond

	// MaxPrimaryAddr is the highest valid GPIB primary address.
	MaxPrimaryAddr = 30
)

// Config holds controller-level configuration.
type Config struct {
	readTimeout     time.Duration
	srqPollInterval time.Duration
	logger          logger.Logger
}

// NewConfig creates a controller configuration.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		readTimeout:     DefaultReadTimeout,
		srqPollInterval: DefaultSRQPollInterval,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ReadTimeout returns the controller read timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// SRQPollInterval returns the ++srq polling interval.
func (cfg *Config) SRQPollInterval() time.Duration { return cfg.srqPollInterval }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option configures a Config; apply returns an error for invalid values.
type Option interface {
	apply(cfg *Config) error
}

type optionFunc func(cfg *Config) error

func (f optionFunc) apply(cfg *Config) error { return f(cfg) }

// WithReadTimeout sets the controller read timeout (++read_tmo_ms).
// Valid range is 1ms to 3s per the Prologix manual.
func WithReadTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d < time.Millisecond || d > 3*time.Second {
			return fmt.Errorf("gpib: read timeout %v out of range [1ms, 3s]", d)
		}
		cfg.readTimeout = d
		return nil
	})
}

// WithSRQPollInterval sets how often WaitSRQ polls the SRQ line.
func WithSRQPollInterval(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("gpib: SRQ poll interval %v is not positive", d)
		}
		cfg.srqPollInterval = d
		return nil
	})
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(cfg *Config) error {
		if l == nil {
			return fmt.Errorf("gpib: logger is nil")
		}
		cfg.logger = l
		return nil
	})
}

// DeviceOption configures one Device handle.
type DeviceOption interface {
	applyDevice(d *Device) error
}

type deviceOptionFunc func(d *Device) error

func (f deviceOptionFunc) applyDevice(d *Device) error { return f(d) }

// WithReadTermination sets the termination stripped from device responses.
// Defaults to "\n"; the Oxford ITC503, for example, terminates with "\r".
func WithReadTermination(term string) DeviceOption {
	return deviceOptionFunc(func(d *Device) error {
		d.readTermination = term
		return nil
	})
}

// WithWriteTermination sets the termination appended to device commands.
func WithWriteTermination(term string) DeviceOption {
	return deviceOptionFunc(func(d *Device) error {
		d.writeTermination = term
		return nil
	})
}
