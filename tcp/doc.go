// Package tcp provides the TCP transport for networked instruments: camera
// servers, detector control channels and motion controllers that expose a
// plain-text command socket.
//
// A Conn is one TCP connection implementing [transport.Transport]. Responses
// are framed either by a configurable terminator string (e.g. "EndOfAPI" for
// the Newport XPS) or, with no terminator, by a single read bounded by the
// read timeout, matching devices that answer in one segment.
package tcp
