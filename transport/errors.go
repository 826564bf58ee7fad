package transport

import (
	"errors"
	"fmt"
)

// Sentinel causes for instrument link failures. Every error returned by an
// instctl transport or driver unwraps to one of these.
var (
	// ErrTimeout indicates the device did not answer before the read timeout.
	ErrTimeout = errors.New("transport: read timeout")

	// ErrClosed indicates the connection is closed.
	ErrClosed = errors.New("transport: connection closed")

	// ErrShortWrite indicates an incomplete write to the device.
	ErrShortWrite = errors.New("transport: incomplete write")

	// ErrBadResponse indicates the device answered with something the driver
	// could not parse or an explicit device-side error reply.
	ErrBadResponse = errors.New("transport: malformed or error response")

	// ErrIdentityMismatch indicates the device at the configured port is not
	// the expected instrument model.
	ErrIdentityMismatch = errors.New("transport: connected instrument identity mismatch")
)

// Error is the unified instrument error. It carries the failing operation,
// the device identity (port name, GPIB address, or host:port) and the cause.
type Error struct {
	Op     string
	Device string
	Err    error
}

func (e *Error) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("instrument %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("instrument %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err into an *Error. A nil err returns nil; an err that is
// already an *Error is returned unchanged so the innermost operation wins.
func NewError(op, device string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Device: device, Err: err}
}
