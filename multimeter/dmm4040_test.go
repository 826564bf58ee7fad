package multimeter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func newTestDMM(t *testing.T) (*TekDMM4040, *transport.Mock) {
	t.Helper()

	m := transport.NewMock()
	m.OnWrite("*RST;*CLS")

	d, err := New(m)
	require.NoError(t, err)

	return d, m
}

func TestVoltage(t *testing.T) {
	d, m := newTestDMM(t)
	m.OnQuery("MEAS:DC?", "+3.29012345E-01\n")

	v, err := d.Voltage()
	require.NoError(t, err)
	assert.InDelta(t, 0.329012345, v, 1e-12)
}

func TestVoltage_BadReply(t *testing.T) {
	d, m := newTestDMM(t)
	m.OnQuery("MEAS:DC?", "OVLD\n")

	_, err := d.Voltage()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}

func TestErrorCodes(t *testing.T) {
	d, m := newTestDMM(t)
	m.OnQuery("SYST:ERR?", "+0,\"No error\"\n").Once()

	codes, err := d.ErrorCodes()
	require.NoError(t, err)
	assert.Empty(t, codes)

	m.OnQuery("SYST:ERR?", "-113,\"Undefined header\"\n").Once()
	codes, err = d.ErrorCodes()
	require.NoError(t, err)
	assert.Contains(t, codes, "-113")
}

func TestClose_ResetsAndCloses(t *testing.T) {
	d, m := newTestDMM(t)
	m.OnQuery("SYST:ERR?", "+0,\"No error\"\n")
	m.On("Close").Return(nil)

	require.NoError(t, d.Close())
	m.AssertCalled(t, "Close")
}
