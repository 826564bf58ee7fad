// Package freqcounter provides drivers for the frequency counters used to
// monitor the RF cavity: the Racal-Dana 1991 on GPIB and the TTi TF930 on
// its USB-serial port.
package freqcounter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/transport"
)

// RacalDana1991 is a Racal-Dana 1991 universal counter. Once configured it
// free-runs and streams CR-terminated measurements prefixed with the
// function mnemonic, e.g. "FA 10.000000E6".
type RacalDana1991 struct {
	t transport.Transport
}

// NewRacalDana1991 configures the counter for frequency-A measurements with
// continuous triggering.
func NewRacalDana1991(t transport.Transport) (*RacalDana1991, error) {
	if _, err := t.WriteString("FA"); err != nil {
		return nil, err
	}
	if _, err := t.WriteString("T0"); err != nil {
		return nil, err
	}

	return &RacalDana1991{t: t}, nil
}

// Close closes the underlying transport.
func (c *RacalDana1991) Close() error { return c.t.Close() }

// Frequency reads the next measurement in Hz.
func (c *RacalDana1991) Frequency() (float64, error) {
	raw, err := c.t.ReadString()
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(strings.ReplaceAll(raw, "FA", ""))
	hz, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("freqcounter: measurement %q: %w", raw, transport.ErrBadResponse)
	}

	return hz, nil
}

// TTiTF930 is a TTi TF930 frequency counter. A "?" query returns the latest
// measurement with its unit appended, e.g. "10.0000000e6Hz".
type TTiTF930 struct {
	t transport.Transport
}

// NewTTiTF930 wraps an open transport.
func NewTTiTF930(t transport.Transport) *TTiTF930 {
	return &TTiTF930{t: t}
}

// Close closes the underlying transport.
func (c *TTiTF930) Close() error { return c.t.Close() }

// Frequency returns the latest measurement in Hz.
func (c *TTiTF930) Frequency() (float64, error) {
	raw, err := c.t.Query("?")
	if err != nil {
		return 0, err
	}

	value := strings.TrimSpace(raw)
	value = strings.TrimSuffix(value, "Hz")
	hz, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("freqcounter: measurement %q: %w", raw, transport.ErrBadResponse)
	}

	return hz, nil
}
