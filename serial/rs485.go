package serial

import (
	"fmt"
	"strings"

	"github.com/uedlab/instctl/transport"
)

// FrameTrailer terminates every RS-485 frame in the "@<addr>...;FF"
// addressing scheme used by Kurt Lesker / MKS transducers.
const FrameTrailer = ";FF"

// BroadcastAddr addresses any single transducer on the bus.
const BroadcastAddr = 254

// RS485 adapts a serial Conn to an addressed multidrop bus. Each exchange is
// framed as "@<addr><cmd>;FF" and the reply envelope is stripped, leaving
// only the payload (e.g. "ACK1.23E-2").
type RS485 struct {
	conn *Conn
	addr int
}

// NewRS485 wraps an open serial connection for the device at addr (0 to 255).
// The connection should be configured with an empty write terminator; the
// frame trailer replaces it.
func NewRS485(conn *Conn, addr int) (*RS485, error) {
	if addr < 0 || addr > 255 {
		return nil, fmt.Errorf("serial: RS-485 address %d out of range [0, 255]", addr)
	}
	return &RS485{conn: conn, addr: addr}, nil
}

// Addr returns the bus address this wrapper sends to.
func (r *RS485) Addr() int { return r.addr }

// Exchange sends cmd inside an address frame and returns the reply payload.
func (r *RS485) Exchange(cmd string) (string, error) {
	frame := FrameCommand(r.addr, cmd)
	if _, err := r.conn.WriteString(frame); err != nil {
		return "", err
	}

	raw, err := r.conn.ReadUntil(FrameTrailer)
	if err != nil {
		return "", err
	}

	payload, err := ParseReply(raw)
	if err != nil {
		return "", transport.NewError("exchange", r.conn.Port(), err)
	}

	return payload, nil
}

// Send writes cmd inside an address frame without awaiting a reply. A few
// commands, such as the transducer's identify flash, are never acknowledged.
func (r *RS485) Send(cmd string) error {
	_, err := r.conn.WriteString(FrameCommand(r.addr, cmd))
	return err
}

// Close closes the underlying serial connection.
func (r *RS485) Close() error { return r.conn.Close() }

// FrameCommand builds an RS-485 frame: "@<addr, 3 digits><cmd>;FF".
func FrameCommand(addr int, cmd string) string {
	return fmt.Sprintf("@%03d%s%s", addr, cmd, FrameTrailer)
}

// ParseReply strips the "@<addr>" envelope from a reply whose ";FF" trailer
// has already been consumed by the framed read. Replies may carry a
// different address than the request went to (the device answers with its
// own), so the address digits are not checked against the request.
func ParseReply(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 || raw[0] != '@' {
		return "", fmt.Errorf("reply %q lacks address envelope: %w", raw, transport.ErrBadResponse)
	}
	for _, ch := range raw[1:4] {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("reply %q has malformed address: %w", raw, transport.ErrBadResponse)
		}
	}

	return raw[4:], nil
}
