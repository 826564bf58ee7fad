package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/tempctrl"
	"github.com/uedlab/instctl/transport"
)

// The ITC503 terminates its lines with CR in both directions, so the device
// handle must carry "\r" terminations while the controller link itself stays
// terminator-free. Commands therefore leave the link as "<cmd>\x1b\r\n"
// (CR escaped for the adapter, LF framing the controller command) and CR is
// stripped from replies.
func TestNewTempController_LinkFraming(t *testing.T) {
	m := transport.NewMock()

	// Adapter setup.
	m.OnWrite("++mode 1\n")
	m.OnWrite("++auto 0\n")
	m.OnWrite("++eoi 1\n")
	m.OnWrite("++eos 3\n")
	m.OnWrite("++read_tmo_ms 500\n")

	// Device clear on open.
	m.OnWrite("++addr 24\n")
	m.OnWrite("++clr\n")

	// C3 (remote unlocked), SRQ-gated.
	m.OnWrite("C3\x1b\r\n")
	m.OnWrite("++srq\n")
	m.OnWrite("++read eoi\n")
	m.On("ReadString").Return("1", nil).Once()
	m.On("ReadString").Return("C\r", nil).Once()

	itc, cleanup, err := newTempController(m, 24, tempctrl.WithSettleDelay(0))
	require.NoError(t, err)

	// R1 sensor read: CR appended on write, CR stripped from the reply.
	m.OnWrite("R1\x1b\r\n")
	m.On("ReadString").Return("1", nil).Once()
	m.On("ReadString").Return("R291.2\r", nil).Once()

	temp, err := itc.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 291.2, temp, 1e-9)

	m.On("Close").Return(nil)
	cleanup()
	m.AssertCalled(t, "Close")
	m.AssertExpectations(t)
}
