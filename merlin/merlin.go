// Package merlin provides the client for the Merlin Quad detector server.
//
// The Merlin software exposes a name/value protocol on its command port.
// Frames are comma-separated ASCII starting with "MPX" and a payload length,
// e.g. "MPX,0016,GET,TEMPERATURE". GET replies carry the value and a status
// code; SET and CMD replies carry the status code only.
package merlin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/tcp"
	"github.com/uedlab/instctl/transport"
)

// The server uses fixed port numbers: commands on one socket, streamed frame
// data on the other.
const (
	CmdPort  = 6341
	DataPort = 6342
)

// Status codes returned in the last field of every reply.
var (
	ErrBusy         = errors.New("merlin: system busy")
	ErrUnrecognized = errors.New("merlin: command not recognised")
	ErrOutOfRange   = errors.New("merlin: parameter out of range")
)

func statusErr(status string) error {
	switch strings.TrimSpace(status) {
	case "0":
		return nil
	case "1":
		return ErrBusy
	case "2":
		return ErrUnrecognized
	case "3":
		return ErrOutOfRange
	default:
		return fmt.Errorf("merlin: status %q: %w", status, transport.ErrBadResponse)
	}
}

// Client talks to the Merlin command port.
type Client struct {
	t transport.Transport
}

// New wraps an open transport. Replies are unframed, so the transport must
// use single-read framing.
func New(t transport.Transport) *Client {
	return &Client{t: t}
}

// Open connects to the command port on the detector server host.
func Open(host string, opts ...tcp.Option) (*Client, error) {
	cfg, err := tcp.NewConfig(host, CmdPort, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := tcp.Dial(cfg)
	if err != nil {
		return nil, err
	}

	return New(conn), nil
}

// Close closes the connection to the detector server.
func (c *Client) Close() error { return c.t.Close() }

// frame prefixes the payload with the MPX header. The length field counts
// the payload including its leading comma; pad keeps the historic zero
// padding the server expects for each verb.
func frame(pad, payload string) string {
	return fmt.Sprintf("MPX,%s%d%s", pad, len(payload), payload)
}

// Get reads a variable and returns its raw value field.
func (c *Client) Get(name string) (string, error) {
	reply, err := c.t.Query(frame("00", ",GET,"+name))
	if err != nil {
		return "", err
	}

	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) < 6 {
		return "", fmt.Errorf("merlin: reply %q has %d fields: %w", reply, len(fields), transport.ErrBadResponse)
	}
	if err := statusErr(fields[5]); err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	return fields[4], nil
}

// GetFloat reads a numeric variable.
func (c *Client) GetFloat(name string) (float64, error) {
	raw, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("merlin: %s value %q: %w", name, raw, transport.ErrBadResponse)
	}

	return v, nil
}

// GetInt reads an integer variable.
func (c *Client) GetInt(name string) (int, error) {
	raw, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("merlin: %s value %q: %w", name, raw, transport.ErrBadResponse)
	}

	return v, nil
}

// Set writes a variable.
func (c *Client) Set(name string, value any) error {
	reply, err := c.t.Query(frame("000", fmt.Sprintf(",SET,%s,%v", name, value)))
	if err != nil {
		return err
	}

	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) < 5 {
		return fmt.Errorf("merlin: reply %q has %d fields: %w", reply, len(fields), transport.ErrBadResponse)
	}
	if err := statusErr(fields[4]); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	return nil
}

// Command runs a parameterless command such as STARTACQUISITION.
func (c *Client) Command(name string) error {
	reply, err := c.t.Query(frame("", ",CMD,"+name))
	if err != nil {
		return err
	}

	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) < 5 {
		return fmt.Errorf("merlin: reply %q has %d fields: %w", reply, len(fields), transport.ErrBadResponse)
	}
	if err := statusErr(fields[4]); err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}

	return nil
}

// SensorTemperature returns the immediate sensor temperature in Celsius.
func (c *Client) SensorTemperature() (float64, error) { return c.GetFloat("TEMPERATURE") }

// HVBias returns the high-voltage sensor bias in volts.
func (c *Client) HVBias() (float64, error) { return c.GetFloat("HVBIAS") }

// AcquisitionTime returns the per-image acquisition time in milliseconds.
func (c *Client) AcquisitionTime() (float64, error) { return c.GetFloat("ACQUISITIONTIME") }

// SetAcquisitionTime sets the per-image acquisition time in milliseconds.
func (c *Client) SetAcquisitionTime(ms float64) error { return c.Set("ACQUISITIONTIME", ms) }

// NumFrames returns the number of images acquired on the next start.
func (c *Client) NumFrames() (int, error) { return c.GetInt("NUMFRAMESTOACQUIRE") }

// SetNumFrames sets the number of images acquired on the next start.
func (c *Client) SetNumFrames(n int) error { return c.Set("NUMFRAMESTOACQUIRE", n) }

// TriggerStart arms the detector: acquisition starts on the next trigger
// pulse.
func (c *Client) TriggerStart() error { return c.Set("TRIGGERSTART", 1) }

// TriggerStop stops the acquisition on the next trigger.
func (c *Client) TriggerStop() error { return c.Set("TRIGGERSTOP", 0) }

// StartAcquisition starts an acquisition immediately.
func (c *Client) StartAcquisition() error { return c.Command("STARTACQUISITION") }

// StopAcquisition stops the running acquisition.
func (c *Client) StopAcquisition() error { return c.Command("STOPACQUISITION") }
