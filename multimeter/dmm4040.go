// Package multimeter provides the driver for Tektronix DMM4040 bench
// multimeters.
package multimeter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/transport"
)

// TekDMM4040 is a Tektronix DMM4040 six-and-a-half digit multimeter on the
// GPIB bus.
type TekDMM4040 struct {
	t      transport.Transport
	logger logger.Logger
}

// New resets the instrument.
func New(t transport.Transport) (*TekDMM4040, error) {
	if _, err := t.WriteString("*RST;*CLS"); err != nil {
		return nil, err
	}

	return &TekDMM4040{t: t, logger: logger.GetLogger()}, nil
}

// Close drains the error queue (logging anything found), resets the
// instrument and closes the link.
func (d *TekDMM4040) Close() error {
	if codes, err := d.ErrorCodes(); err == nil && codes != "" {
		d.logger.Warn("multimeter reported errors on close", "codes", codes)
	}
	_, _ = d.t.WriteString("*RST;*CLS")

	return d.t.Close()
}

// ErrorCodes returns the device error queue, or "" when it is empty.
func (d *TekDMM4040) ErrorCodes() (string, error) {
	raw, err := d.t.Query("SYST:ERR?")
	if err != nil {
		return "", err
	}

	codes := strings.TrimSpace(raw)
	if strings.HasPrefix(codes, "+0") {
		return "", nil
	}

	return codes, nil
}

// Voltage measures the instantaneous DC voltage.
func (d *TekDMM4040) Voltage() (float64, error) {
	raw, err := d.t.Query("MEAS:DC?")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("multimeter: reading %q: %w", raw, transport.ErrBadResponse)
	}

	return v, nil
}
