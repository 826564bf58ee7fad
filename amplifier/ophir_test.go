package amplifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func TestForwardPower(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("FWD_PWR?", "123.4 WATTS\r\n")

	a := New(m)
	w, err := a.ForwardPower()
	require.NoError(t, err)
	assert.InDelta(t, 123.4, w, 1e-9)
}

func TestReversePower(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("REV_PWR?", "001.2 WATTS\r\n")

	a := New(m)
	w, err := a.ReversePower()
	require.NoError(t, err)
	assert.InDelta(t, 1.2, w, 1e-9)
}

func TestALCLevel(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("ALC_LEVEL?", "050.0\r\n")

	a := New(m)
	v, err := a.ALCLevel()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestForwardPower_BadReply(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("FWD_PWR?", "FAULT\r\n")

	a := New(m)
	_, err := a.ForwardPower()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}

func TestSetStandby(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("STANDBY")

	a := New(m)
	require.NoError(t, a.SetStandby(true))
	m.AssertExpectations(t)
}

func TestSetStandby_Online(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("ONLINE")

	a := New(m)
	require.NoError(t, a.SetStandby(false))
	m.AssertExpectations(t)
}
