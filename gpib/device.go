package gpib

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uedlab/instctl/transport"
)

// Device is one instrument on the GPIB bus, implementing
// [transport.Transport]. Handles are obtained from [Controller.Device] and
// share the controller link; each call is one serialized bus transaction.
type Device struct {
	ctrl *Controller
	addr int

	// readTermination is stripped from responses; writeTermination is
	// appended to commands (and escaped on the controller link).
	readTermination  string
	writeTermination string
}

var _ transport.Transport = (*Device)(nil)
var _ transport.Clearer = (*Device)(nil)

// Addr returns the device's GPIB primary address.
func (d *Device) Addr() int { return d.addr }

// Name returns the conventional resource name, e.g. "GPIB::24".
func (d *Device) Name() string { return fmt.Sprintf("GPIB::%d", d.addr) }

// WriteString addresses the device and sends s.
func (d *Device) WriteString(s string) (int, error) {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	return d.writeLocked(s)
}

func (d *Device) writeLocked(s string) (int, error) {
	if err := d.ctrl.ensureAddrLocked(d.addr); err != nil {
		return 0, transport.NewError("write", d.Name(), err)
	}

	payload := escapePayload(s + d.writeTermination)
	if err := d.ctrl.sendCmdLocked(payload); err != nil {
		return 0, transport.NewError("write", d.Name(), err)
	}

	return len(s), nil
}

// ReadString addresses the device, triggers a controller read (++read eoi)
// and returns the response with the device's read termination stripped.
func (d *Device) ReadString() (string, error) {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	return d.readLocked()
}

func (d *Device) readLocked() (string, error) {
	if err := d.ctrl.ensureAddrLocked(d.addr); err != nil {
		return "", transport.NewError("read", d.Name(), err)
	}
	if err := d.ctrl.sendCmdLocked("++read eoi"); err != nil {
		return "", transport.NewError("read", d.Name(), err)
	}

	raw, err := d.ctrl.link.ReadString()
	if err != nil {
		return "", transport.NewError("read", d.Name(), err)
	}

	if d.readTermination != "" {
		raw = strings.TrimSuffix(raw, d.readTermination)
	}

	return raw, nil
}

// Query sends cmd and reads the response in one bus transaction.
func (d *Device) Query(cmd string) (string, error) {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	if _, err := d.writeLocked(cmd); err != nil {
		return "", err
	}

	return d.readLocked()
}

// Clear sends Selected Device Clear (++clr) to the device.
func (d *Device) Clear() error {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	if err := d.ctrl.ensureAddrLocked(d.addr); err != nil {
		return transport.NewError("clear", d.Name(), err)
	}

	return transport.NewError("clear", d.Name(), d.ctrl.sendCmdLocked("++clr"))
}

// SerialPoll reads the device's status byte (++spoll).
func (d *Device) SerialPoll() (byte, error) {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	if err := d.ctrl.sendCmdLocked(fmt.Sprintf("++spoll %d", d.addr)); err != nil {
		return 0, transport.NewError("spoll", d.Name(), err)
	}

	raw, err := d.ctrl.link.ReadString()
	if err != nil {
		return 0, transport.NewError("spoll", d.Name(), err)
	}

	status, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || status < 0 || status > 255 {
		return 0, transport.NewError("spoll", d.Name(),
			fmt.Errorf("status byte %q: %w", raw, transport.ErrBadResponse))
	}

	return byte(status), nil
}

// WaitSRQ blocks until the SRQ line asserts or the timeout expires. A zero
// timeout waits forever. The device asserting SRQ typically signals that a
// response or a full buffer is ready for reading.
func (d *Device) WaitSRQ(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		asserted, err := d.srqAsserted()
		if err != nil {
			return err
		}
		if asserted {
			return nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return transport.NewError("wait-srq", d.Name(), transport.ErrTimeout)
		}

		time.Sleep(d.ctrl.cfg.srqPollInterval)
	}
}

func (d *Device) srqAsserted() (bool, error) {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()

	if err := d.ctrl.sendCmdLocked("++srq"); err != nil {
		return false, transport.NewError("wait-srq", d.Name(), err)
	}

	raw, err := d.ctrl.link.ReadString()
	if err != nil {
		return false, transport.NewError("wait-srq", d.Name(), err)
	}

	return strings.TrimSpace(raw) == "1", nil
}

// Close releases the device handle. The controller link stays open; close
// the Controller to release the bus.
func (d *Device) Close() error {
	d.ctrl.devices.Delete(d.addr)
	return nil
}
