// Package psupply provides the driver for Heinzinger PNChp high-voltage
// power supplies.
package psupply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/transport"
)

// identitySubstring must appear in the *IDN? reply of a PNChp 150000 supply.
const identitySubstring = "PNChp150000"

// HeinzingerPNChp is a Heinzinger PNChp 150000 high-voltage supply on a
// serial link. Voltages are in kV and currents in mA, matching the
// instrument's SCPI units.
type HeinzingerPNChp struct {
	t transport.Transport
}

// New verifies the connected instrument's identity and configures 16-sample
// measurement averaging.
func New(t transport.Transport) (*HeinzingerPNChp, error) {
	identity, err := t.Query("*IDN?")
	if err != nil {
		return nil, err
	}
	if !strings.Contains(identity, identitySubstring) {
		return nil, transport.NewError("identify", "",
			fmt.Errorf("connected instrument is not a PNChp power supply: %q: %w",
				identity, transport.ErrIdentityMismatch))
	}

	if _, err := t.WriteString("AVER 16"); err != nil {
		return nil, err
	}

	return &HeinzingerPNChp{t: t}, nil
}

// Open connects to the supply on the named serial port.
func Open(port string, opts ...serial.Option) (*HeinzingerPNChp, error) {
	cfg, err := serial.NewConfig(port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	ps, err := New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return ps, nil
}

// Close closes the underlying transport.
func (p *HeinzingerPNChp) Close() error { return p.t.Close() }

// MeasuredVoltage returns the instantaneous measured voltage in kV.
func (p *HeinzingerPNChp) MeasuredVoltage() (float64, error) {
	return p.queryFloat("MEAS:VOLT?")
}

// VoltageSetpoint returns the voltage setpoint in kV.
func (p *HeinzingerPNChp) VoltageSetpoint() (float64, error) {
	return p.queryFloat("VOLT?")
}

// MeasuredCurrent returns the instantaneous measured current in mA.
func (p *HeinzingerPNChp) MeasuredCurrent() (float64, error) {
	return p.queryFloat("MEAS:CURR?")
}

// CurrentSetpoint returns the current setpoint in mA.
func (p *HeinzingerPNChp) CurrentSetpoint() (float64, error) {
	return p.queryFloat("CURR?")
}

// EnableOutput toggles the high-voltage output.
func (p *HeinzingerPNChp) EnableOutput(on bool) error {
	cmd := "OUTP OFF"
	if on {
		cmd = "OUTP ON"
	}
	_, err := p.t.WriteString(cmd)

	return err
}

// SetVoltage sets the nominal voltage in kV.
func (p *HeinzingerPNChp) SetVoltage(kv float64) error {
	_, err := p.t.WriteString(fmt.Sprintf("VOLT %g", kv))
	return err
}

// SetCurrent sets the nominal current in mA.
func (p *HeinzingerPNChp) SetCurrent(ma float64) error {
	_, err := p.t.WriteString(fmt.Sprintf("CURR %g", ma))
	return err
}

func (p *HeinzingerPNChp) queryFloat(cmd string) (float64, error) {
	raw, err := p.t.Query(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("psupply: reply %q to %q: %w", raw, cmd, transport.ErrBadResponse)
	}

	return v, nil
}
