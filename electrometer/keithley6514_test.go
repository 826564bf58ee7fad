package electrometer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func newTestElectrometer(t *testing.T) (*Keithley6514, *transport.Mock) {
	t.Helper()

	m := transport.NewMock()
	m.OnWrite("*RST;*CLS")
	m.OnWrite("FORM:ELEM READ, TIME")

	e, err := New(m)
	require.NoError(t, err)

	return e, m
}

func TestNew_ResetsAndConfiguresFormat(t *testing.T) {
	_, m := newTestElectrometer(t)

	m.AssertCalled(t, "WriteString", "*RST;*CLS")
	m.AssertCalled(t, "WriteString", "FORM:ELEM READ, TIME")
}

func TestTriggerSource(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.OnQuery("TRIG:SOUR?", "TLIN\n")
	m.OnWrite("TRIG:SOUR IMM")

	src, err := e.TriggerSource()
	require.NoError(t, err)
	assert.Equal(t, TriggerLink, src)

	require.NoError(t, e.SetTriggerSource(TriggerImmediate))
	assert.Error(t, e.SetTriggerSource(TriggerSource("EXT")))
}

func TestInputTriggerLine(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.OnQuery("TRIG:TCON:ASYN:ILIN?", "3\n")
	m.OnWrite("TRIG:TCON:ASYN:ILIN 5")

	line, err := e.InputTriggerLine()
	require.NoError(t, err)
	assert.Equal(t, 3, line)

	require.NoError(t, e.SetInputTriggerLine(5))
	assert.Error(t, e.SetInputTriggerLine(0))
	assert.Error(t, e.SetInputTriggerLine(7))
}

func TestMeasurementFunction(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.OnQuery("CONF?", "\"CURR\"\n")
	m.OnWrite("CONF:CHAR")

	fn, err := e.MeasurementFunction()
	require.NoError(t, err)
	assert.Equal(t, FuncCurrent, fn)

	require.NoError(t, e.SetMeasurementFunction(FuncCharge))
	assert.Error(t, e.SetMeasurementFunction(Function("TEMP")))
}

func TestErrorCodes(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.OnQuery("SYST:ERR:CODE:ALL?", "0\n").Once()
	m.OnWrite("SYST:CLE")

	codes, err := e.ErrorCodes()
	require.NoError(t, err)
	assert.Empty(t, codes)

	m.OnQuery("SYST:ERR:CODE:ALL?", "-113,-222\n").Once()
	codes, err = e.ErrorCodes()
	require.NoError(t, err)
	assert.Equal(t, "-113,-222", codes)
}

func TestAcquireBuffered(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.On("WriteString", mock.AnythingOfType("string")).Return(4, nil)
	m.On("WaitSRQ", 5*time.Second).Return(nil)
	m.OnQuery("TRAC:DATA?", "-1.2E-9,0.000,-1.3E-9,0.104,-1.1E-9,0.208\n")

	readings, err := e.AcquireBuffered(3, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, readings, 3)

	assert.InDelta(t, -1.2e-9, readings[0].Value, 1e-15)
	assert.InDelta(t, 0.0, readings[0].Time, 1e-9)
	assert.InDelta(t, -1.1e-9, readings[2].Value, 1e-15)
	assert.InDelta(t, 0.208, readings[2].Time, 1e-9)

	m.AssertCalled(t, "WriteString", "TRIG:COUN 3")
	m.AssertCalled(t, "WriteString", "TRAC:POIN 3")
	m.AssertCalled(t, "WriteString", "INIT")
}

func TestAcquireBuffered_Validation(t *testing.T) {
	e, _ := newTestElectrometer(t)

	_, err := e.AcquireBuffered(0, 0)
	assert.Error(t, err)

	_, err = e.AcquireBuffered(MaxBufferedReadings+1, 0)
	assert.Error(t, err)
}

func TestAcquireBuffered_SRQTimeout(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.On("WriteString", mock.AnythingOfType("string")).Return(4, nil)
	m.On("WaitSRQ", time.Second).Return(transport.NewError("wait-srq", "GPIB::14", transport.ErrTimeout))

	_, err := e.AcquireBuffered(10, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrTimeout))
}

func TestParseBufferedData_Short(t *testing.T) {
	_, err := parseBufferedData("-1.2E-9,0.000", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}

func TestToggles(t *testing.T) {
	e, m := newTestElectrometer(t)
	m.OnWrite("DISP:ENAB OFF")
	m.OnWrite("SYST:AZER ON")
	m.OnWrite("SYST:ZCH OFF")

	require.NoError(t, e.ToggleDisplay(false))
	require.NoError(t, e.ToggleAutozero(true))
	require.NoError(t, e.ToggleZeroCheck(false))
	m.AssertExpectations(t)
}
