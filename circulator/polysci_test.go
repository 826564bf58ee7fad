package circulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func TestTemperature(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("RS", "018.50C\r\n")

	c := New(m)
	temp, err := c.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 18.5, temp, 1e-9)
}

func TestTemperature_BadReply(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("RS", "FAULT\r\n")

	c := New(m)
	_, err := c.Temperature()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}

func TestSetTemperature_ZeroPadsBelowHundred(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("SS018.50")

	c := New(m)
	require.NoError(t, c.SetTemperature(18.5))
	m.AssertExpectations(t)
}

func TestSetTemperature_AboveHundred(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("SS120.25")

	c := New(m)
	require.NoError(t, c.SetTemperature(120.25))
	m.AssertExpectations(t)
}

func TestSetTemperature_RejectsOutOfRange(t *testing.T) {
	c := New(transport.NewMock())
	assert.Error(t, c.SetTemperature(1000.0))
}
