package merlin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func TestFrame(t *testing.T) {
	assert.Equal(t, "MPX,0016,GET,TEMPERATURE", frame("00", ",GET,TEMPERATURE"))
	assert.Equal(t, "MPX,00019,SET,TRIGGERSTART,1", frame("000", ",SET,TRIGGERSTART,1"))
	assert.Equal(t, "MPX,21,CMD,STARTACQUISITION", frame("", ",CMD,STARTACQUISITION"))
}

func TestSensorTemperature(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,0016,GET,TEMPERATURE", "MPX,0021,GET,TEMPERATURE,24.5,0")

	c := New(m)
	temp, err := c.SensorTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 24.5, temp, 1e-9)
}

func TestNumFrames(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,0023,GET,NUMFRAMESTOACQUIRE", "MPX,0028,GET,NUMFRAMESTOACQUIRE,10,0")

	c := New(m)
	n, err := c.NumFrames()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestGet_BusyStatus(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,0011,GET,HVBIAS", "MPX,0015,GET,HVBIAS,0,1")

	c := New(m)
	_, err := c.HVBias()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestTriggerStart(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,00019,SET,TRIGGERSTART,1", "MPX,0019,SET,TRIGGERSTART,0")

	c := New(m)
	require.NoError(t, c.TriggerStart())
	m.AssertExpectations(t)
}

func TestTriggerStop(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,00018,SET,TRIGGERSTOP,0", "MPX,0018,SET,TRIGGERSTOP,0")

	c := New(m)
	require.NoError(t, c.TriggerStop())
	m.AssertExpectations(t)
}

func TestSet_OutOfRange(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,00026,SET,NUMFRAMESTOACQUIRE,-1", "MPX,0026,SET,NUMFRAMESTOACQUIRE,3")

	c := New(m)
	err := c.SetNumFrames(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestStartAcquisition(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,21,CMD,STARTACQUISITION", "MPX,0021,CMD,STARTACQUISITION,0")

	c := New(m)
	require.NoError(t, c.StartAcquisition())
	m.AssertExpectations(t)
}

func TestGet_UnknownStatus(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("MPX,0016,GET,TEMPERATURE", "MPX,0021,GET,TEMPERATURE,24.5,9")

	c := New(m)
	_, err := c.SensorTemperature()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}
