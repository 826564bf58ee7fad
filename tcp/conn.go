package tcp

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/transport"
)

// Conn is one TCP connection to a networked instrument, implementing
// [transport.Transport].
type Conn struct {
	cfg    *Config
	conn   net.Conn
	logger logger.Logger

	pending bytes.Buffer
	closed  bool
}

var _ transport.Transport = (*Conn)(nil)

// Dial connects to the configured endpoint.
func Dial(cfg *Config) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tcp: config is nil")
	}

	conn, err := net.DialTimeout("tcp", cfg.Addr(), cfg.connectTimeout)
	if err != nil {
		return nil, transport.NewError("dial", cfg.Addr(), err)
	}

	cfg.logger.Debug("tcp instrument connected", "addr", cfg.Addr())

	return &Conn{cfg: cfg, conn: conn, logger: cfg.logger}, nil
}

// WriteString sends s, appending the configured write terminator when missing.
func (c *Conn) WriteString(s string) (int, error) {
	if c.closed {
		return 0, transport.NewError("write", c.cfg.Addr(), transport.ErrClosed)
	}

	if term := c.cfg.writeTerminator; term != "" && !strings.HasSuffix(s, term) {
		s += term
	}

	n, err := c.conn.Write([]byte(s))
	if err != nil {
		return n, transport.NewError("write", c.cfg.Addr(), err)
	}
	if n < len(s) {
		return n, transport.NewError("write", c.cfg.Addr(), transport.ErrShortWrite)
	}

	return n, nil
}

// ReadString reads one response.
//
// With a terminator configured, bytes accumulate until it appears and the
// terminator is stripped. Without one, a single Read bounded by the read
// timeout forms the response, matching instruments that answer in one
// segment (camera servers, detector command channels).
func (c *Conn) ReadString() (string, error) {
	if c.closed {
		return "", transport.NewError("read", c.cfg.Addr(), transport.ErrClosed)
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

	buf := make([]byte, 1024)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.readTimeout)); err != nil {
			return "", transport.NewError("read", c.cfg.Addr(), err)
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
			if len(term) == 0 {
				return out.String(), nil
			}
			if s, ok := splitTerm(&out, &c.pending, term); ok {
				return s, nil
			}
		}
		if err != nil {
			if isTimeout(err) {
				if out.Len() == 0 {
					return "", transport.NewError("read", c.cfg.Addr(), transport.ErrTimeout)
				}
				return out.String(), transport.NewError("read", c.cfg.Addr(), transport.ErrTimeout)
			}
			return out.String(), transport.NewError("read", c.cfg.Addr(), err)
		}
	}
}

// Query sends cmd and reads the response.
func (c *Conn) Query(cmd string) (string, error) {
	if _, err := c.WriteString(cmd); err != nil {
		return "", err
	}
	return c.ReadString()
}

// Close closes the connection.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return transport.NewError("close", c.cfg.Addr(), err)
	}
	return nil
}

// Addr returns the remote endpoint as "host:port".
func (c *Conn) Addr() string { return c.cfg.Addr() }

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
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}
