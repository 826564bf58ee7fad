// Package shutter provides the driver for Thorlabs SC10 shutter controllers.
package shutter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/transport"
)

// TriggerMode selects the SC10 trigger source.
type TriggerMode int

const (
	TriggerInternal TriggerMode = 0
	TriggerExternal TriggerMode = 1
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerInternal:
		return "internal"
	case TriggerExternal:
		return "external"
	default:
		return fmt.Sprintf("TriggerMode(%d)", int(m))
	}
}

// OperatingMode selects the SC10 operating mode.
type OperatingMode int

const (
	ModeManual OperatingMode = iota + 1
	ModeAuto
	ModeSingle
	ModeRepeat
	ModeGated
)

func (m OperatingMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAuto:
		return "auto"
	case ModeSingle:
		return "single"
	case ModeRepeat:
		return "repeat"
	case ModeGated:
		return "gated"
	default:
		return fmt.Sprintf("OperatingMode(%d)", int(m))
	}
}

// SC10 is a Thorlabs SC10 shutter controller.
//
// The SC10 echoes every command and terminates its replies with a "> "
// prompt; the driver strips both. There is no direct enable/disable command
// on the device, only a toggle, so Enable reads the current state first.
type SC10 struct {
	t transport.Transport
}

// NewSC10 wraps an open transport, normally a serial connection at 9600 8N1.
func NewSC10(t transport.Transport) *SC10 {
	return &SC10{t: t}
}

// OpenSC10 opens the shutter on the named serial port with the controller's
// fixed line settings (9600 baud, CR commands, prompt-framed replies).
func OpenSC10(port string, opts ...serial.Option) (*SC10, error) {
	opts = append([]serial.Option{
		serial.WithBaudRate(9600),
		serial.WithReadTerminator(""), // replies end at the "> " prompt, not a terminator
	}, opts...)

	cfg, err := serial.NewConfig(port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	return NewSC10(conn), nil
}

// Close closes the underlying transport.
func (s *SC10) Close() error { return s.t.Close() }

// Identity returns the controller identification string.
func (s *SC10) Identity() (string, error) {
	return s.query("id?")
}

// Enabled reports whether the shutter is enabled.
func (s *SC10) Enabled() (bool, error) {
	return s.queryBool("ens?")
}

// Enable enables or disables the shutter. The SC10 only exposes a toggle, so
// the current state is read first and the toggle is sent when they differ.
func (s *SC10) Enable(enable bool) error {
	current, err := s.Enabled()
	if err != nil {
		return err
	}
	if current == enable {
		return nil
	}

	_, err = s.query("ens")

	return err
}

// Open reports whether the shutter is open.
func (s *SC10) Open() (bool, error) {
	closed, err := s.Closed()
	return !closed, err
}

// Closed reports whether the shutter is closed.
func (s *SC10) Closed() (bool, error) {
	return s.queryBool("closed?")
}

// OpenTime returns the shutter open time in milliseconds.
func (s *SC10) OpenTime() (int, error) {
	return s.queryInt("open?")
}

// SetOpenTime sets the shutter open time in milliseconds.
func (s *SC10) SetOpenTime(ms int) error {
	_, err := s.query(fmt.Sprintf("open=%d", ms))
	return err
}

// RepeatCount returns the repeat count used in repeat mode.
func (s *SC10) RepeatCount() (int, error) {
	return s.queryInt("rep?")
}

// SetRepeatCount sets the repeat-mode count, 1 to 99.
func (s *SC10) SetRepeatCount(count int) error {
	if count < 1 || count > 99 {
		return fmt.Errorf("shutter: repeat count %d not in [1, 99] range", count)
	}
	_, err := s.query(fmt.Sprintf("rep=%d", count))

	return err
}

// Trigger returns the trigger mode.
func (s *SC10) Trigger() (TriggerMode, error) {
	v, err := s.queryInt("trig?")
	return TriggerMode(v), err
}

// SetTrigger sets the trigger mode.
func (s *SC10) SetTrigger(mode TriggerMode) error {
	if mode != TriggerInternal && mode != TriggerExternal {
		return fmt.Errorf("shutter: invalid trigger mode %d", int(mode))
	}
	_, err := s.query(fmt.Sprintf("trig=%d", int(mode)))

	return err
}

// Mode returns the operating mode.
func (s *SC10) Mode() (OperatingMode, error) {
	v, err := s.queryInt("mode?")
	return OperatingMode(v), err
}

// SetMode sets the operating mode.
func (s *SC10) SetMode(mode OperatingMode) error {
	if mode < ModeManual || mode > ModeGated {
		return fmt.Errorf("shutter: invalid operating mode %d", int(mode))
	}
	_, err := s.query(fmt.Sprintf("mode=%d", int(mode)))

	return err
}

// query sends a command and cleans the reply: the SC10 echoes the command and
// appends CRs and a '>' prompt, all of which are stripped.
func (s *SC10) query(cmd string) (string, error) {
	raw, err := s.t.Query(cmd)
	if err != nil {
		return "", err
	}

	resp := strings.ReplaceAll(raw, cmd, "")
	resp = strings.ReplaceAll(resp, "\r", "")
	resp = strings.ReplaceAll(resp, ">", "")

	return strings.TrimSpace(resp), nil
}

func (s *SC10) queryInt(cmd string) (int, error) {
	resp, err := s.query(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("shutter: reply %q to %q: %w", resp, cmd, transport.ErrBadResponse)
	}

	return v, nil
}

func (s *SC10) queryBool(cmd string) (bool, error) {
	v, err := s.queryInt(cmd)
	return v != 0, err
}
