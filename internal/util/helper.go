// Package util holds small helpers shared by the transport and driver packages.
package util

import (
	"fmt"
	"net"
)

// IsValidIP reports whether addr is a valid IPv4 address in dotted-quad form.
func IsValidIP(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.To4() != nil
}

// FormatFixed formats v as a fixed-point decimal with the given total width,
// zero-padded on the left, two digits after the point. Used by instruments
// that require fixed-width numeric fields (e.g. "095.50" for 95.5).
func FormatFixed(v float64, width int) string {
	return fmt.Sprintf("%0*.2f", width, v)
}
