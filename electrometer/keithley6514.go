// Package electrometer provides the driver for the Keithley 6514
// electrometer.
package electrometer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/transport"
)

// MaxBufferedReadings is the capacity of the 6514's internal reading buffer.
const MaxBufferedReadings = 2500

// Function is a 6514 measurement function.
type Function string

const (
	FuncVoltage    Function = "VOLT"
	FuncCurrent    Function = "CURR"
	FuncResistance Function = "RES"
	FuncCharge     Function = "CHAR"
)

// TriggerSource selects between immediate and trigger-link triggering.
type TriggerSource string

const (
	TriggerImmediate TriggerSource = "IMM"
	TriggerLink      TriggerSource = "TLIN"
)

// Link is the electrometer's connection: a transport that can also wait for
// a GPIB service request. *gpib.Device satisfies it.
type Link interface {
	transport.Transport
	WaitSRQ(timeout time.Duration) error
}

// Reading is one buffered measurement with its device timestamp.
type Reading struct {
	// Time is the device timestamp in seconds since buffer start.
	Time float64
	// Value is the reading in the active function's unit.
	Value float64
}

// Keithley6514 is a Keithley 6514 system electrometer on the GPIB bus.
type Keithley6514 struct {
	link   Link
	logger logger.Logger
}

// New resets the instrument and configures it to report readings with
// timestamps.
func New(link Link) (*Keithley6514, error) {
	e := &Keithley6514{link: link, logger: logger.GetLogger()}

	if _, err := link.WriteString("*RST;*CLS"); err != nil {
		return nil, err
	}
	if _, err := link.WriteString("FORM:ELEM READ, TIME"); err != nil {
		return nil, err
	}

	return e, nil
}

// Close drains the error queue (logging anything found), resets the
// instrument and closes the link.
func (e *Keithley6514) Close() error {
	if codes, err := e.ErrorCodes(); err == nil && codes != "" {
		e.logger.Warn("electrometer reported errors on close", "codes", codes)
	}
	// Best effort: the instrument may already be unreachable.
	_, _ = e.link.WriteString("*RST;*CLS")

	return e.link.Close()
}

// ErrorCodes returns the device error queue as a comma-separated string, or
// "" when the queue is empty. The queue is cleared after reading.
func (e *Keithley6514) ErrorCodes() (string, error) {
	raw, err := e.link.Query("SYST:ERR:CODE:ALL?")
	if err != nil {
		return "", err
	}
	if _, err := e.link.WriteString("SYST:CLE"); err != nil {
		return "", err
	}

	codes := strings.TrimSpace(raw)
	if v, err := strconv.Atoi(codes); err == nil && v == 0 {
		return "", nil
	}

	return codes, nil
}

// TriggerSource returns the active trigger source.
func (e *Keithley6514) TriggerSource() (TriggerSource, error) {
	raw, err := e.link.Query("TRIG:SOUR?")
	return TriggerSource(strings.TrimSpace(raw)), err
}

// SetTriggerSource selects immediate or trigger-link triggering.
func (e *Keithley6514) SetTriggerSource(src TriggerSource) error {
	if src != TriggerImmediate && src != TriggerLink {
		return fmt.Errorf("electrometer: trigger source must be IMM or TLIN, not %q", string(src))
	}
	_, err := e.link.WriteString(fmt.Sprintf("TRIG:SOUR %s", src))

	return err
}

// InputTriggerLine returns the trigger-link input line. Only meaningful with
// the TLIN trigger source.
func (e *Keithley6514) InputTriggerLine() (int, error) {
	raw, err := e.link.Query("TRIG:TCON:ASYN:ILIN?")
	if err != nil {
		return 0, err
	}
	line, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("electrometer: trigger line reply %q: %w", raw, transport.ErrBadResponse)
	}

	return line, nil
}

// SetInputTriggerLine selects the trigger-link input line, 1 to 6.
func (e *Keithley6514) SetInputTriggerLine(line int) error {
	if line < 1 || line > 6 {
		return fmt.Errorf("electrometer: input trigger line must be between 1 and 6, not %d", line)
	}
	_, err := e.link.WriteString(fmt.Sprintf("TRIG:TCON:ASYN:ILIN %d", line))

	return err
}

// MeasurementFunction returns the configured measurement function.
func (e *Keithley6514) MeasurementFunction() (Function, error) {
	raw, err := e.link.Query("CONF?")
	return Function(strings.Trim(strings.TrimSpace(raw), `"`)), err
}

// SetMeasurementFunction configures voltage, current, resistance or charge
// measurement.
func (e *Keithley6514) SetMeasurementFunction(fn Function) error {
	switch fn {
	case FuncVoltage, FuncCurrent, FuncResistance, FuncCharge:
	default:
		return fmt.Errorf("electrometer: unsupported measurement function %q", string(fn))
	}
	_, err := e.link.WriteString(fmt.Sprintf("CONF:%s", fn))

	return err
}

// AcquireBuffered stores num readings in the device buffer and returns them
// once the buffer fills, waiting at most timeout for the buffer-full SRQ.
// A zero timeout waits forever.
//
// For best throughput, toggle the display off first.
func (e *Keithley6514) AcquireBuffered(num int, timeout time.Duration) ([]Reading, error) {
	if num < 1 || num > MaxBufferedReadings {
		return nil, fmt.Errorf("electrometer: buffered count %d not in [1, %d] range", num, MaxBufferedReadings)
	}

	setup := []string{
		fmt.Sprintf("TRIG:COUN %d", num),
		"*SRE 9",             // assert SRQ on measurement event
		"STAT:PRES",          // reset all event registers
		"STAT:MEAS:ENAB 512", // buffer-full event
		"TRAC:CLE",
		fmt.Sprintf("TRAC:POIN %d", num),
		"TRAC:FEED SENS1",
		"TRAC:FEED:CONT NEXT", // arm buffered acquisition
		"INIT",                // leave idle state
	}
	for _, cmd := range setup {
		if _, err := e.link.WriteString(cmd); err != nil {
			return nil, err
		}
	}

	if err := e.link.WaitSRQ(timeout); err != nil {
		return nil, err
	}

	raw, err := e.link.Query("TRAC:DATA?")
	if err != nil {
		return nil, err
	}

	return parseBufferedData(raw, num)
}

// parseBufferedData splits the TRAC:DATA? reply, an alternating
// reading,timestamp sequence, into readings.
func parseBufferedData(raw string, num int) ([]Reading, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < 2*num {
		return nil, fmt.Errorf("electrometer: buffer returned %d fields, want %d: %w",
			len(fields), 2*num, transport.ErrBadResponse)
	}

	readings := make([]Reading, num)
	for i := 0; i < num; i++ {
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[2*i]), 64)
		if err != nil {
			return nil, fmt.Errorf("electrometer: reading %q: %w", fields[2*i], transport.ErrBadResponse)
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(fields[2*i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("electrometer: timestamp %q: %w", fields[2*i+1], transport.ErrBadResponse)
		}
		readings[i] = Reading{Time: ts, Value: value}
	}

	return readings, nil
}

// ToggleDisplay enables or disables the front-panel display. Acquisition is
// faster with the display off.
func (e *Keithley6514) ToggleDisplay(on bool) error {
	_, err := e.link.WriteString(fmt.Sprintf("DISP:ENAB %s", onOff(on)))
	return err
}

// ToggleAutozero enables or disables autozeroing. Acquisition is faster with
// autozeroing off.
func (e *Keithley6514) ToggleAutozero(on bool) error {
	_, err := e.link.WriteString(fmt.Sprintf("SYST:AZER %s", onOff(on)))
	return err
}

// ToggleZeroCheck enables or disables zero check.
func (e *Keithley6514) ToggleZeroCheck(on bool) error {
	_, err := e.link.WriteString(fmt.Sprintf("SYST:ZCH %s", onOff(on)))
	return err
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
