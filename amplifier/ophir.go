// Package amplifier provides the driver for Ophir RF power amplifiers.
// The amplifier carries GPIB, RS-232 and Ethernet interfaces that all speak
// the same command set, so the driver works over any transport.
package amplifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/tcp"
	"github.com/uedlab/instctl/transport"
)

// OphirRF is an Ophir RF amplifier on any of its remote interfaces.
type OphirRF struct {
	t transport.Transport
}

// New wraps an open transport.
func New(t transport.Transport) *OphirRF {
	return &OphirRF{t: t}
}

// OpenSerial connects on the amplifier's RS-232 port.
func OpenSerial(port string, opts ...serial.Option) (*OphirRF, error) {
	cfg, err := serial.NewConfig(port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	return New(conn), nil
}

// OpenTCP connects on the amplifier's Ethernet interface.
func OpenTCP(host string, port int, opts ...tcp.Option) (*OphirRF, error) {
	cfg, err := tcp.NewConfig(host, port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := tcp.Dial(cfg)
	if err != nil {
		return nil, err
	}

	return New(conn), nil
}

// Close closes the underlying transport.
func (a *OphirRF) Close() error { return a.t.Close() }

// queryFixed reads one of the fixed-width power fields. The amplifier pads
// replies with unit text after the first five characters.
func (a *OphirRF) queryFixed(cmd string) (float64, error) {
	raw, err := a.t.Query(cmd)
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(raw)
	if len(value) > 5 {
		value = value[:5]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("amplifier: %s reply %q: %w", cmd, raw, transport.ErrBadResponse)
	}

	return v, nil
}

// ForwardPower returns the forward power in watts.
func (a *OphirRF) ForwardPower() (float64, error) { return a.queryFixed("FWD_PWR?") }

// ReversePower returns the reflected power in watts.
func (a *OphirRF) ReversePower() (float64, error) { return a.queryFixed("REV_PWR?") }

// ALCLevel returns the automatic level control setpoint.
func (a *OphirRF) ALCLevel() (float64, error) { return a.queryFixed("ALC_LEVEL?") }

// SetStandby puts the amplifier in standby, or back online when enable is
// false.
func (a *OphirRF) SetStandby(enable bool) error {
	msg := "ONLINE"
	if enable {
		msg = "STANDBY"
	}
	_, err := a.t.WriteString(msg)

	return err
}
