// Package camera provides the client for the Gatan Ultrascan 895 camera
// server.
//
// The camera runs inside Digital Micrograph on the microscope PC; a small
// server script exposes it over TCP. Commands are semicolon-joined strings
// and every command is answered, with the literal reply "ERR" signalling
// failure.
package camera

import (
	"fmt"
	"strings"

	"github.com/uedlab/instctl/tcp"
	"github.com/uedlab/instctl/transport"
)

// Server defaults. The server script listens on the microscope PC itself.
const (
	DefaultAddr = "127.0.0.1"
	DefaultPort = 42057
)

// GatanUltrascan895 is a Gatan Ultrascan 895 CCD camera behind the Digital
// Micrograph server.
type GatanUltrascan895 struct {
	t transport.Transport
}

// New wraps an open transport. Replies are unframed, so the transport must
// use single-read framing.
func New(t transport.Transport) *GatanUltrascan895 {
	return &GatanUltrascan895{t: t}
}

// Open connects to the camera server.
func Open(addr string, port int, opts ...tcp.Option) (*GatanUltrascan895, error) {
	cfg, err := tcp.NewConfig(addr, port, opts...)
	if err != nil {
		return nil, err
	}
	conn, err := tcp.Dial(cfg)
	if err != nil {
		return nil, err
	}

	return New(conn), nil
}

// Close closes the connection to the camera server.
func (c *GatanUltrascan895) Close() error { return c.t.Close() }

// SendCommand joins the parts into one command, sends it and waits for the
// server's answer. An "ERR" answer is returned as a transport error.
func (c *GatanUltrascan895) SendCommand(parts ...string) (string, error) {
	cmd := strings.Join(parts, "")
	if _, err := c.t.WriteString(cmd); err != nil {
		return "", err
	}

	answer, err := c.t.ReadString()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "ERR" {
		return "", fmt.Errorf("camera: command %q failed: %w", cmd, transport.ErrBadResponse)
	}

	return answer, nil
}

// Insert moves the camera into the beam, or retracts it when insert is false.
func (c *GatanUltrascan895) Insert(insert bool) error {
	_, err := c.SendCommand("ULTRASCAN;INSERT;", boolField(insert))
	return err
}

// AcquireImage acquires a gain-normalized image with the given exposure in
// seconds and tells the server to write it to path on the camera PC.
func (c *GatanUltrascan895) AcquireImage(exposure float64, path string, antiblooming bool) error {
	_, err := c.SendCommand(fmt.Sprintf("ULTRASCAN;ACQUIRE;%.3f,%s,%s", exposure, path, boolField(antiblooming)))
	return err
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
