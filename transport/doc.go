// Package transport defines the byte-level contract shared by every
// instrument link in instctl.
//
// A Transport is a single open connection to one physical port or address:
// a serial port, a GPIB device behind a controller, or a TCP endpoint. It is
// opened on construction and owned by exactly one instrument handle for the
// handle's lifetime.
//
// All instrument drivers are written against the Transport interface, so a
// driver for a device that ships with multiple link options (for example the
// Ophir RF amplifiers, sold with serial, GPIB and Ethernet backplanes) is a
// single implementation.
//
// # Error model
//
// Failures from any link are reported as *Error values wrapping a small set
// of sentinel causes (ErrTimeout, ErrClosed, ...). Callers match with
// errors.Is and never need to know which transport produced the failure:
//
//	pres, err := gauge.Pressure()
//	if errors.Is(err, transport.ErrTimeout) {
//	    // gauge did not answer in time
//	}
package transport
