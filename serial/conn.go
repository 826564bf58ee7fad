package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	tarm "github.com/tarm/serial"

	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/transport"
)

// Conn is one open serial port implementing [transport.Transport].
type Conn struct {
	cfg    *Config
	port   *tarm.Port
	logger logger.Logger

	// pending holds bytes read past a terminator, served first on the
	// next ReadString.
	pending bytes.Buffer
	closed  bool
}

var _ transport.Transport = (*Conn)(nil)
var _ transport.Clearer = (*Conn)(nil)

// Open opens the configured serial port and flushes any stale bytes left in
// the device buffers from a previous session.
func Open(cfg *Config) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serial: config is nil")
	}

	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.port,
		Baud:        cfg.baudRate,
		Size:        cfg.dataBits,
		Parity:      tarm.Parity(cfg.parity),
		StopBits:    tarm.StopBits(cfg.stopBits),
		ReadTimeout: cfg.readTimeout,
	})
	if err != nil {
		return nil, transport.NewError("open", cfg.port, err)
	}

	c := &Conn{cfg: cfg, port: port, logger: cfg.logger}
	if err := c.Clear(); err != nil {
		_ = port.Close()
		return nil, err
	}

	c.logger.Debug("serial port opened", "port", cfg.port, "baud", cfg.baudRate)

	return c, nil
}

// Clear flushes the port's input and output buffers, which might not be
// empty due to errors in a previous exchange.
func (c *Conn) Clear() error {
	c.pending.Reset()
	if err := c.port.Flush(); err != nil {
		return transport.NewError("clear", c.cfg.port, err)
	}
	return nil
}

// WriteString sends s on the port, appending the configured write terminator
// when missing.
func (c *Conn) WriteString(s string) (int, error) {
	if c.closed {
		return 0, transport.NewError("write", c.cfg.port, transport.ErrClosed)
	}

	if term := c.cfg.writeTerminator; term != "" && !strings.HasSuffix(s, term) {
		s += term
	}

	n, err := c.port.Write([]byte(s))
	if err != nil {
		return n, transport.NewError("write", c.cfg.port, err)
	}
	if n < len(s) {
		return n, transport.NewError("write", c.cfg.port, transport.ErrShortWrite)
	}

	return n, nil
}

// ReadString reads one response.
//
// With a read terminator configured, bytes are accumulated until the
// terminator is seen; the terminator is stripped from the result. With an
// empty terminator, the response is everything received before the port goes
// quiet for one read timeout. In both cases a timeout with nothing received
// returns [transport.ErrTimeout].
func (c *Conn) ReadString() (string, error) {
	if c.closed {
		return "", transport.NewError("read", c.cfg.port, transport.ErrClosed)
	}

	term := []byte(c.cfg.readTerminator)
	var out bytes.Buffer

	if c.pending.Len() > 0 {
		out.Write(c.pending.Bytes())
		c.pending.Reset()
		if len(term) > 0 {
			if s, ok := splitTerm(&out, &c.pending, term); ok {
				return s, nil
			}
		}
	}

	buf := make([]byte, 256)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
			if len(term) > 0 {
				if s, ok := splitTerm(&out, &c.pending, term); ok {
					return s, nil
				}
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) && !isTimeout(err) {
			return out.String(), transport.NewError("read", c.cfg.port, err)
		}

		// Read timeout: the port went quiet.
		if out.Len() == 0 {
			return "", transport.NewError("read", c.cfg.port, transport.ErrTimeout)
		}
		if len(term) == 0 {
			return out.String(), nil
		}

		// Partial response without terminator; report what arrived.
		return out.String(), transport.NewError("read", c.cfg.port, transport.ErrTimeout)
	}
}

// ReadUntil reads until the given terminator string, ignoring the configured
// one. Used by protocols with multi-byte frame trailers such as the RS-485
// "@...;FF" framing.
func (c *Conn) ReadUntil(terminator string) (string, error) {
	if terminator == "" {
		return c.ReadString()
	}

	saved := c.cfg.readTerminator
	c.cfg.readTerminator = terminator
	defer func() { c.cfg.readTerminator = saved }()

	return c.ReadString()
}

// Query sends cmd and reads the response.
func (c *Conn) Query(cmd string) (string, error) {
	if _, err := c.WriteString(cmd); err != nil {
		return "", err
	}
	return c.ReadString()
}

// Close closes the serial port.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.port.Close(); err != nil {
		return transport.NewError("close", c.cfg.port, err)
	}
	return nil
}

// Port returns the underlying port name.
func (c *Conn) Port() string { return c.cfg.port }

// splitTerm looks for term in out. On a match it moves the bytes after the
// terminator into pending and returns the bytes before it.
func splitTerm(out, pending *bytes.Buffer, term []byte) (string, bool) {
	idx := bytes.Index(out.Bytes(), term)
	if idx < 0 {
		return "", false
	}
	data := out.Bytes()
	resp := string(data[:idx])
	rest := data[idx+len(term):]
	pending.Write(rest)
	out.Reset()

	return resp, true
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return false
}
