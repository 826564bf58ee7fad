// Package tempctrl provides the driver for the Oxford Instruments ITC 503
// intelligent temperature controller.
//
// The ITC503 speaks a terse single-letter register protocol over GPIB with
// CR-terminated lines: C sets the control level, A the heater/gas-flow
// automation, T the temperature setpoint, O the heater output, G the gas
// flow, X reads the status word and Rn reads numbered registers. Every
// command produces a response, signalled via SRQ, which must be drained even
// for sets, so all traffic goes through SRQ-gated queries.
package tempctrl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/uedlab/instctl/transport"
)

// DefaultAddr is the GPIB primary address the lab's ITC503 answers on.
const DefaultAddr = 24

// DefaultSRQTimeout bounds the wait for the response-ready SRQ.
const DefaultSRQTimeout = 25 * time.Second

// ControlState is the ITC503 local/remote control level.
type ControlState int

const (
	LocalLocked    ControlState = 0 // front panel only; power-up default
	RemoteLocked   ControlState = 1
	LocalUnlocked  ControlState = 2
	RemoteUnlocked ControlState = 3
)

// HeaterGasMode is the heater and gas-flow automation state.
type HeaterGasMode int

const (
	AllManual           HeaterGasMode = 0
	HeaterAutoGasManual HeaterGasMode = 1
	HeaterManualGasAuto HeaterGasMode = 2
	AllAuto             HeaterGasMode = 3
)

// Link is the controller's connection: a transport that can clear the device
// and wait for service requests. *gpib.Device satisfies it.
type Link interface {
	transport.Transport
	transport.Clearer
	WaitSRQ(timeout time.Duration) error
}

// ITC503 is an Oxford ITC 503 temperature controller.
type ITC503 struct {
	link        Link
	srqTimeout  time.Duration
	settleDelay time.Duration
}

// Option adjusts driver timing.
type Option func(c *ITC503)

// WithSRQTimeout bounds the wait for each response-ready SRQ.
func WithSRQTimeout(d time.Duration) Option {
	return func(c *ITC503) { c.srqTimeout = d }
}

// WithSettleDelay overrides the post-clear settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(c *ITC503) { c.settleDelay = d }
}

// New clears the controller and switches it to remote unlocked control.
//
// Without a short delay between the clear and the first command the ITC503
// can freeze, so New sleeps briefly in between.
func New(link Link, opts ...Option) (*ITC503, error) {
	c := &ITC503{link: link, srqTimeout: DefaultSRQTimeout, settleDelay: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(c)
	}

	if err := link.Clear(); err != nil {
		return nil, err
	}
	time.Sleep(c.settleDelay)

	if err := c.SetControl(RemoteUnlocked); err != nil {
		return nil, err
	}

	return c, nil
}

// Close returns the controller to local unlocked control and closes the link.
func (c *ITC503) Close() error {
	// Best effort: leave the front panel usable.
	_ = c.SetControl(LocalUnlocked)
	return c.link.Close()
}

// SetControl sets the local/remote control level.
func (c *ITC503) SetControl(state ControlState) error {
	if state < LocalLocked || state > RemoteUnlocked {
		return fmt.Errorf("tempctrl: unexpected control state %d", int(state))
	}
	_, err := c.query(fmt.Sprintf("C%d", int(state)))

	return err
}

// Control returns the current control level, decoded from the status word.
func (c *ITC503) Control() (ControlState, error) {
	status, err := c.status()
	if err != nil {
		return 0, err
	}

	digit, err := statusDigit(status, 5)
	if err != nil {
		return 0, err
	}

	return ControlState(digit), nil
}

// SetHeaterGasMode sets the heater and gas-flow automation state.
func (c *ITC503) SetHeaterGasMode(mode HeaterGasMode) error {
	if mode < AllManual || mode > AllAuto {
		return fmt.Errorf("tempctrl: unexpected heater and gas flow mode %d", int(mode))
	}
	_, err := c.query(fmt.Sprintf("A%d", int(mode)))

	return err
}

// HeaterGasMode returns the automation state, decoded from the status word.
func (c *ITC503) HeaterGasMode() (HeaterGasMode, error) {
	status, err := c.status()
	if err != nil {
		return 0, err
	}

	digit, err := statusDigit(status, 3)
	if err != nil {
		return 0, err
	}

	return HeaterGasMode(digit), nil
}

// Temperature returns the instantaneous temperature of sensor 1 in Kelvin.
func (c *ITC503) Temperature() (float64, error) {
	return c.readRegister(1)
}

// Setpoint returns the temperature setpoint in Kelvin.
func (c *ITC503) Setpoint() (float64, error) {
	return c.readRegister(0)
}

// HeaterPowerPercent returns the heater output in percent.
func (c *ITC503) HeaterPowerPercent() (float64, error) {
	return c.readRegister(5)
}

// HeaterPowerVolts returns the heater output voltage.
func (c *ITC503) HeaterPowerVolts() (float64, error) {
	return c.readRegister(6)
}

// GasFlow returns the needle-valve gas flow in percent.
func (c *ITC503) GasFlow() (float64, error) {
	return c.readRegister(7)
}

// SetTemperature changes the temperature setpoint in Kelvin and verifies the
// controller accepted it. A rejected setpoint usually means the control
// level was never raised to remote.
func (c *ITC503) SetTemperature(kelvin float64) error {
	if _, err := c.query(fmt.Sprintf("T%3.2f", kelvin)); err != nil {
		return err
	}

	actual, err := c.Setpoint()
	if err != nil {
		return err
	}
	if math.Abs(actual-kelvin) > 1e-6 {
		_ = c.link.Clear()
		return fmt.Errorf("tempctrl: setpoint readback %.2f K after setting %.2f K: %w",
			actual, kelvin, transport.ErrBadResponse)
	}

	return nil
}

// SetHeaterPower sets the heater output in percent, 0 to 99.9 in 0.1 steps.
// Heater control must be in a manual mode first; see SetHeaterGasMode.
func (c *ITC503) SetHeaterPower(percent float64) error {
	if percent < 0 || percent >= 100 {
		return fmt.Errorf("tempctrl: heater power %.1f%% not in [0, 99.9] range", percent)
	}
	percent = math.Floor(percent*10) / 10

	if _, err := c.query(fmt.Sprintf("O%.1f", percent)); err != nil {
		return err
	}

	actual, err := c.HeaterPowerPercent()
	if err != nil {
		return err
	}
	if math.Abs(actual-percent) > 1e-6 {
		_ = c.link.Clear()
		return fmt.Errorf("tempctrl: heater power readback %.1f%% after setting %.1f%%: %w",
			actual, percent, transport.ErrBadResponse)
	}

	return nil
}

// SetGasFlow operates the motorized needle valve, 0 to 99.9 percent open in
// 0.1 steps. Gas-flow control must be in a manual mode first.
func (c *ITC503) SetGasFlow(percent float64) error {
	if percent < 0 || percent >= 100 {
		return fmt.Errorf("tempctrl: gas flow %.1f%% not in [0, 99.9] range", percent)
	}
	percent = math.Floor(percent*10) / 10

	if _, err := c.query(fmt.Sprintf("G%.1f", percent)); err != nil {
		return err
	}

	actual, err := c.GasFlow()
	if err != nil {
		return err
	}
	if math.Abs(actual-percent) > 1e-6 {
		_ = c.link.Clear()
		return fmt.Errorf("tempctrl: gas flow readback %.1f%% after setting %.1f%%: %w",
			actual, percent, transport.ErrBadResponse)
	}

	return nil
}

// EmergencyStop zeroes the heater output and gas flow and hands control back
// to the front panel.
func (c *ITC503) EmergencyStop() error {
	mode, err := c.HeaterGasMode()
	if err != nil {
		return err
	}
	if mode != AllManual {
		if err := c.SetHeaterGasMode(AllManual); err != nil {
			return err
		}
	}

	if err := c.SetHeaterPower(0); err != nil {
		return err
	}
	if err := c.SetGasFlow(0); err != nil {
		return err
	}

	return c.SetControl(LocalUnlocked)
}

// query writes one command and reads its response. The ITC503 asserts SRQ
// when the full response is available.
func (c *ITC503) query(cmd string) (string, error) {
	if _, err := c.link.WriteString(cmd); err != nil {
		return "", err
	}
	if err := c.link.WaitSRQ(c.srqTimeout); err != nil {
		return "", err
	}

	return c.link.ReadString()
}

// status reads the status word, e.g. "X0A0C0S00H1L0".
func (c *ITC503) status() (string, error) {
	status, err := c.query("X")
	if err != nil {
		return "", err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		_ = c.link.Clear()
		return "", fmt.Errorf("tempctrl: empty status word: %w", transport.ErrBadResponse)
	}

	return status, nil
}

// readRegister reads numbered register n, replied as e.g. "R291.2".
func (c *ITC503) readRegister(n int) (float64, error) {
	raw, err := c.query(fmt.Sprintf("R%d", n))
	if err != nil {
		return 0, err
	}

	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != 'R' {
		return 0, fmt.Errorf("tempctrl: register %d reply %q: %w", n, raw, transport.ErrBadResponse)
	}
	v, err := strconv.ParseFloat(raw[1:], 64)
	if err != nil {
		return 0, fmt.Errorf("tempctrl: register %d reply %q: %w", n, raw, transport.ErrBadResponse)
	}

	return v, nil
}

func statusDigit(status string, idx int) (int, error) {
	if len(status) <= idx {
		return 0, fmt.Errorf("tempctrl: status word %q too short: %w", status, transport.ErrBadResponse)
	}
	digit := int(status[idx] - '0')
	if digit < 0 || digit > 9 {
		return 0, fmt.Errorf("tempctrl: status word %q malformed: %w", status, transport.ErrBadResponse)
	}

	return digit, nil
}
