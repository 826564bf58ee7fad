package transport

import "io"

// Transport is a single textual command/response connection to one
// instrument. Implementations are not safe for concurrent use unless
// documented otherwise; lab instruments are half-duplex by nature.
type Transport interface {
	io.Closer

	// WriteString sends s on the link. Implementations append their
	// configured write terminator if s does not already end with it.
	// It reports the number of payload bytes written.
	WriteString(s string) (int, error)

	// ReadString reads one response: bytes up to (and excluding) the
	// configured read terminator, or whatever arrived before the read
	// timeout for terminator-less devices.
	ReadString() (string, error)

	// Query sends cmd and reads the response. Equivalent to WriteString
	// followed by ReadString on every bundled implementation.
	Query(cmd string) (string, error)
}

// Clearer is implemented by transports that can clear device I/O buffers
// (GPIB Selected Device Clear, serial buffer flush).
type Clearer interface {
	Clear() error
}
