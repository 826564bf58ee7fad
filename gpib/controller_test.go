package gpib

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func newTestController(t *testing.T) (*Controller, *transport.Mock) {
	t.Helper()

	link := transport.NewMock()
	link.On("WriteString", mock.AnythingOfType("string")).Return(8, nil)

	cfg, err := NewConfig(WithSRQPollInterval(time.Millisecond))
	require.NoError(t, err)

	ctrl, err := NewController(link, cfg)
	require.NoError(t, err)

	return ctrl, link
}

func TestNewController_Setup(t *testing.T) {
	_, link := newTestController(t)

	link.AssertCalled(t, "WriteString", "++mode 1\n")
	link.AssertCalled(t, "WriteString", "++auto 0\n")
	link.AssertCalled(t, "WriteString", "++eoi 1\n")
	link.AssertCalled(t, "WriteString", "++eos 3\n")
	link.AssertCalled(t, "WriteString", "++read_tmo_ms 500\n")
}

func TestNewController_NilLink(t *testing.T) {
	_, err := NewController(nil, nil)
	assert.Error(t, err)
}

func TestController_DeviceAddrRange(t *testing.T) {
	ctrl, _ := newTestController(t)

	_, err := ctrl.Device(-1)
	assert.Error(t, err)

	_, err = ctrl.Device(31)
	assert.Error(t, err)

	d, err := ctrl.Device(14)
	require.NoError(t, err)
	assert.Equal(t, 14, d.Addr())
	assert.Equal(t, "GPIB::14", d.Name())

	// Same handle on repeat lookups.
	d2, err := ctrl.Device(14)
	require.NoError(t, err)
	assert.Same(t, d, d2)
}

func TestDevice_QueryAddressesOnce(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("ReadString").Return("NDCV+0.33E0\n", nil)

	d, err := ctrl.Device(16)
	require.NoError(t, err)

	resp, err := d.Query("MEAS:DC?")
	require.NoError(t, err)
	assert.Equal(t, "NDCV+0.33E0", resp)

	resp, err = d.Query("MEAS:DC?")
	require.NoError(t, err)
	assert.Equal(t, "NDCV+0.33E0", resp)

	// The bus listener only needs re-addressing when it changes.
	addrCalls := 0
	for _, call := range link.Calls {
		if call.Method == "WriteString" && call.Arguments.String(0) == "++addr 16\n" {
			addrCalls++
		}
	}
	assert.Equal(t, 1, addrCalls)
}

func TestDevice_WriteTermination(t *testing.T) {
	ctrl, link := newTestController(t)

	d, err := ctrl.Device(24, WithWriteTermination("\r"), WithReadTermination("\r"))
	require.NoError(t, err)

	_, err = d.WriteString("C3")
	require.NoError(t, err)

	// CR must be escaped on the controller link.
	link.AssertCalled(t, "WriteString", "C3\x1b\r\n")
}

func TestDevice_SerialPoll(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("ReadString").Return("64\n", nil).Once()

	d, err := ctrl.Device(9)
	require.NoError(t, err)

	status, err := d.SerialPoll()
	require.NoError(t, err)
	assert.Equal(t, byte(64), status)
	link.AssertCalled(t, "WriteString", "++spoll 9\n")
}

func TestDevice_SerialPollBadStatus(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("ReadString").Return("garbage", nil).Once()

	d, err := ctrl.Device(9)
	require.NoError(t, err)

	_, err = d.SerialPoll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}

func TestDevice_WaitSRQ(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("ReadString").Return("0\n", nil).Twice()
	link.On("ReadString").Return("1\n", nil).Once()

	d, err := ctrl.Device(15)
	require.NoError(t, err)

	require.NoError(t, d.WaitSRQ(time.Second))
}

func TestDevice_WaitSRQTimeout(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("ReadString").Return("0\n", nil)

	d, err := ctrl.Device(15)
	require.NoError(t, err)

	err = d.WaitSRQ(10 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrTimeout))
}

func TestEscapePayload(t *testing.T) {
	assert.Equal(t, "*RST;*CLS", escapePayload("*RST;*CLS"))
	assert.Equal(t, "T25.00\x1b\r", escapePayload("T25.00\r"))
	assert.Equal(t, "\x1b+A\x1b\n", escapePayload("+A\n"))
}

func TestController_CloseMakesDevicesUnusable(t *testing.T) {
	ctrl, link := newTestController(t)
	link.On("Close").Return(nil)

	d, err := ctrl.Device(5)
	require.NoError(t, err)

	require.NoError(t, ctrl.Close())
	require.NoError(t, ctrl.Close()) // idempotent

	_, err = d.WriteString("*IDN?")
	assert.True(t, errors.Is(err, transport.ErrClosed))
}
