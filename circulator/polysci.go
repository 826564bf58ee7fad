// Package circulator provides the driver for PolyScience recirculating
// chillers.
package circulator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/internal/util"
	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/transport"
)

// BaudRate is the only line speed the circulator's RS-232 port supports.
const BaudRate = 57600

// PolySciCirc is a PolyScience circulating bath.
type PolySciCirc struct {
	t transport.Transport
}

// New wraps an open transport.
func New(t transport.Transport) *PolySciCirc {
	return &PolySciCirc{t: t}
}

// Open connects on the named serial port at the circulator's fixed baud rate.
func Open(port string, opts ...serial.Option) (*PolySciCirc, error) {
	opts = append([]serial.Option{serial.WithBaudRate(BaudRate)}, opts...)

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

// Close closes the underlying transport.
func (c *PolySciCirc) Close() error { return c.t.Close() }

// Temperature reads the bath temperature in Celsius.
func (c *PolySciCirc) Temperature() (float64, error) {
	raw, err := c.t.Query("RS")
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(raw)
	if len(value) > 6 {
		value = value[:6]
	}
	temp, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("circulator: reading %q: %w", raw, transport.ErrBadResponse)
	}

	return temp, nil
}

// SetTemperature adjusts the bath setpoint in Celsius. The circulator wants
// a fixed "iii.ii" field, zero-padded below 100 C.
func (c *PolySciCirc) SetTemperature(celsius float64) error {
	if celsius > 999.99 {
		return fmt.Errorf("circulator: setpoint %.2f C must be less than 1000.00 C", celsius)
	}

	var field string
	if celsius < 100 {
		field = util.FormatFixed(celsius, 6)
	} else {
		field = fmt.Sprintf("%.2f", celsius)
	}
	_, err := c.t.WriteString("SS" + field)

	return err
}
