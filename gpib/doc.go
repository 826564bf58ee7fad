// Package gpib drives GPIB instruments through a Prologix-compatible
// GPIB-USB or GPIB-Ethernet controller.
//
// The controller itself is reached over any [transport.Transport] (a serial
// port or a TCP connection) and multiplexes the GPIB bus: every instrument on
// the bus is a Device obtained from Controller.Device by primary address.
// Devices share the controller link; bus transactions are serialized by the
// controller, so Devices may be used from different goroutines.
//
// The controller link must be configured for terminator-less framing (empty
// read terminator): the controller forwards raw device bytes, and each Device
// strips its own read termination.
//
// Controller commands all start with "++" (++addr, ++read eoi, ++clr,
// ++spoll, ++srq) and are never forwarded to the bus. Payload bytes that
// collide with the command syntax (CR, LF, ESC, '+') are escaped with ESC on
// write, per the Prologix protocol.
package gpib
