// Package pressure provides the driver for Kurt Lesker 979 series vacuum
// transducers on an RS-485 bus.
package pressure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/transport"
)

// MaxDegasPressure is the highest pressure, in Torr, at which the 979 allows
// a degas cycle.
const MaxDegasPressure = 1e-5

// Exchanger performs addressed RS-485 traffic: Exchange for command/reply
// pairs, Send for commands that produce no reply. *serial.RS485 satisfies it.
type Exchanger interface {
	Exchange(cmd string) (string, error)
	Send(cmd string) error
	Close() error
}

// KLSeries979 is a Kurt Lesker 979 series vacuum transducer.
//
// Commands travel inside "@<addr>...;FF" frames; the device acknowledges
// with ACK followed by the value, or NAK followed by an error code.
type KLSeries979 struct {
	bus Exchanger
}

// New wraps an addressed RS-485 exchanger.
func New(bus Exchanger) *KLSeries979 {
	return &KLSeries979{bus: bus}
}

// Open connects to the transducer on the named serial port at the given bus
// address (254 broadcasts to a single transducer). Line settings are fixed
// at 9600 8N1 per the 979 manual.
func Open(port string, addr int, opts ...serial.Option) (*KLSeries979, error) {
	opts = append([]serial.Option{
		serial.WithBaudRate(9600),
		serial.WithWriteTerminator(""), // the ";FF" trailer frames writes
	}, opts...)

	cfg, err := serial.NewConfig(port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	bus, err := serial.NewRS485(conn, addr)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return New(bus), nil
}

// Close closes the underlying bus connection.
func (k *KLSeries979) Close() error { return k.bus.Close() }

// Pressure triggers a measurement and returns it in Torr.
func (k *KLSeries979) Pressure() (float64, error) {
	value, err := k.ack("PR3?")
	if err != nil {
		return 0, err
	}
	torr, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("pressure: reading %q: %w", value, transport.ErrBadResponse)
	}

	return torr, nil
}

// BaudRate returns the transducer's configured baud rate.
func (k *KLSeries979) BaudRate() (int, error) {
	value, err := k.ack("BR?")
	if err != nil {
		return 0, err
	}
	baud, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("pressure: baud rate %q: %w", value, transport.ErrBadResponse)
	}

	return baud, nil
}

// Degassing reports whether a degas cycle is running.
func (k *KLSeries979) Degassing() (bool, error) {
	value, err := k.ack("DG?")
	if err != nil {
		return false, err
	}

	return value == "ON", nil
}

// Degas starts a degas cycle. The 979 refuses to degas above
// [MaxDegasPressure], so the current pressure is checked first.
func (k *KLSeries979) Degas() error {
	torr, err := k.Pressure()
	if err != nil {
		return err
	}
	if torr > MaxDegasPressure {
		return fmt.Errorf("pressure: %.3g Torr is too high to degas (limit %.0e): %w",
			torr, MaxDegasPressure, transport.ErrBadResponse)
	}

	_, err = k.ack("DG!ON")

	return err
}

// Identify flashes the filament power LED so the unit can be picked out on
// a crowded rack. The transducer does not answer this command.
func (k *KLSeries979) Identify() error {
	return k.bus.Send("TST?")
}

// ack runs one exchange and unwraps the ACK envelope.
func (k *KLSeries979) ack(cmd string) (string, error) {
	payload, err := k.bus.Exchange(cmd)
	if err != nil {
		return "", err
	}

	if code, ok := strings.CutPrefix(payload, "NAK"); ok {
		return "", fmt.Errorf("pressure: device refused %q with code %s: %w",
			cmd, code, transport.ErrBadResponse)
	}
	value, ok := strings.CutPrefix(payload, "ACK")
	if !ok {
		return "", fmt.Errorf("pressure: reply %q lacks ACK: %w", payload, transport.ErrBadResponse)
	}

	return value, nil
}
