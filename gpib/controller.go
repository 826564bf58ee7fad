package gpib

import (
	"fmt"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/transport"
)

// Controller is one Prologix-compatible GPIB controller. It owns the link to
// the adapter and serializes all bus transactions.
type Controller struct {
	cfg    *Config
	link   transport.Transport
	logger logger.Logger

	// mu serializes bus transactions; the GPIB bus is a shared medium and
	// the controller can only address one device at a time.
	mu sync.Mutex

	// curAddr is the device currently addressed with ++addr, or -1.
	curAddr int

	devices *xsync.MapOf[int, *Device]
	closed  bool
}

// NewController initializes a controller on the given link and puts the
// adapter into Controller-In-Charge mode.
//
// The link must use terminator-less framing; see the package documentation.
func NewController(link transport.Transport, cfg *Config) (*Controller, error) {
	if link == nil {
		return nil, fmt.Errorf("gpib: controller link is nil")
	}
	if cfg == nil {
		var err error
		cfg, err = NewConfig()
		if err != nil {
			return nil, err
		}
	}

	c := &Controller{
		cfg:     cfg,
		link:    link,
		logger:  cfg.logger,
		curAddr: -1,
		devices: xsync.NewMapOf[int, *Device](),
	}

	// CIC mode, manual read-after-write, assert EOI, no controller-side
	// termination (devices manage their own), programmed read timeout.
	setup := []string{
		"++mode 1",
		"++auto 0",
		"++eoi 1",
		"++eos 3",
		fmt.Sprintf("++read_tmo_ms %d", cfg.readTimeout.Milliseconds()),
	}
	for _, cmd := range setup {
		if err := c.sendCmd(cmd); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("gpib controller initialized", "read_tmo", cfg.readTimeout)

	return c, nil
}

// Device returns the handle for the instrument at the given primary address,
// creating it on first use. Subsequent calls with the same address return the
// same handle; options are only applied on creation.
func (c *Controller) Device(addr int, opts ...DeviceOption) (*Device, error) {
	if addr < 0 || addr > MaxPrimaryAddr {
		return nil, fmt.Errorf("gpib: primary address %d out of range [0, %d]", addr, MaxPrimaryAddr)
	}

	if d, ok := c.devices.Load(addr); ok {
		return d, nil
	}

	d := &Device{
		ctrl:             c,
		addr:             addr,
		readTermination:  "\n",
		writeTermination: "",
	}
	for _, opt := range opts {
		if err := opt.applyDevice(d); err != nil {
			return nil, err
		}
	}

	actual, _ := c.devices.LoadOrStore(addr, d)

	return actual, nil
}

// Close closes the controller link. All Device handles become unusable.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.link.Close()
}

// sendCmd writes one ++ controller command. Caller must not hold c.mu when
// calling during setup; transaction paths use sendCmdLocked.
func (c *Controller) sendCmd(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sendCmdLocked(cmd)
}

func (c *Controller) sendCmdLocked(cmd string) error {
	if c.closed {
		return transport.NewError("write", "gpib", transport.ErrClosed)
	}
	_, err := c.link.WriteString(cmd + "\n")

	return err
}

// ensureAddrLocked addresses the device at addr if it is not already the
// bus listener.
func (c *Controller) ensureAddrLocked(addr int) error {
	if c.curAddr == addr {
		return nil
	}
	if err := c.sendCmdLocked(fmt.Sprintf("++addr %d", addr)); err != nil {
		return err
	}
	c.curAddr = addr

	return nil
}

// escapePayload escapes CR, LF, ESC and '+' with ESC so the adapter forwards
// them as data instead of parsing them, per the Prologix protocol.
func escapePayload(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r', '\n', 0x1B, '+':
			b.WriteByte(0x1B)
		}
		b.WriteByte(s[i])
	}

	return b.String()
}
