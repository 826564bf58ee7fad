package serial

import (
	"fmt"
	"time"

	"github.com/uedlab/instctl/logger"
)

// Parity is the serial parity mode.
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// StopBits is the number of serial stop bits.
type StopBits byte

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

// Defaults match the most common instrument setup in this lab: 9600 8N1 with
// a one-second read timeout and CR terminators.
const (
	DefaultBaudRate    = 9600
	DefaultDataBits    = 8
	DefaultReadTimeout = 1 * time.Second
	DefaultTerminator  = "\r"
)

// Config holds all configuration for one serial port connection.
type Config struct {
	port     string
	baudRate int
	dataBits byte
	parity   Parity
	stopBits StopBits

	// readTimeout bounds each low-level read. A quiet gap of this length
	// ends a terminator-less response.
	readTimeout time.Duration

	// readTerminator ends a response; empty means read until quiet.
	readTerminator string
	// writeTerminator is appended to outgoing commands when missing.
	writeTerminator string

	logger logger.Logger
}

// NewConfig creates a serial connection configuration for the named port
// (e.g. "COM1" or "/dev/ttyUSB0"). opts are applied in order.
func NewConfig(port string, opts ...Option) (*Config, error) {
	if port == "" {
		return nil, fmt.Errorf("serial: port name is empty")
	}

	cfg := &Config{
		port:            port,
		baudRate:        DefaultBaudRate,
		dataBits:        DefaultDataBits,
		parity:          ParityNone,
		stopBits:        StopBits1,
		readTimeout:     DefaultReadTimeout,
		readTerminator:  DefaultTerminator,
		writeTerminator: DefaultTerminator,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Port returns the configured port name.
func (cfg *Config) Port() string { return cfg.port }

// BaudRate returns the configured baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// DataBits returns the configured number of data bits.
func (cfg *Config) DataBits() byte { return cfg.dataBits }

// Parity returns the configured parity mode.
func (cfg *Config) Parity() Parity { return cfg.parity }

// StopBits returns the configured number of stop bits.
func (cfg *Config) StopBits() StopBits { return cfg.stopBits }

// ReadTimeout returns the per-read timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// ReadTerminator returns the response terminator; empty means quiet-gap framing.
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

// WithBaudRate sets the port baud rate.
func WithBaudRate(baud int) Option {
	return optionFunc(func(cfg *Config) error {
		if baud <= 0 {
			return fmt.Errorf("serial: invalid baud rate %d", baud)
		}
		cfg.baudRate = baud
		return nil
	})
}

// WithDataBits sets the number of data bits (5 to 8).
func WithDataBits(bits byte) Option {
	return optionFunc(func(cfg *Config) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("serial: invalid data bits %d, should be in range of [5, 8]", bits)
		}
		cfg.dataBits = bits
		return nil
	})
}

// WithParity sets the parity mode.
func WithParity(p Parity) Option {
	return optionFunc(func(cfg *Config) error {
		switch p {
		case ParityNone, ParityOdd, ParityEven:
			cfg.parity = p
			return nil
		default:
			return fmt.Errorf("serial: invalid parity %q", byte(p))
		}
	})
}

// WithStopBits sets the number of stop bits.
func WithStopBits(s StopBits) Option {
	return optionFunc(func(cfg *Config) error {
		if s != StopBits1 && s != StopBits2 {
			return fmt.Errorf("serial: invalid stop bits %d", s)
		}
		cfg.stopBits = s
		return nil
	})
}

// WithReadTimeout sets the per-read timeout.
func WithReadTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("serial: read timeout %v is not positive", d)
		}
		cfg.readTimeout = d
		return nil
	})
}

// WithReadTerminator sets the response terminator. An empty terminator
// selects quiet-gap framing: a read ends when the port stops producing bytes.
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
			return fmt.Errorf("serial: logger is nil")
		}
		cfg.logger = l
		return nil
	})
}
