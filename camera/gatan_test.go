package camera

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func TestInsert(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("ULTRASCAN;INSERT;TRUE")
	m.On("ReadString").Return("OK", nil).Once()

	c := New(m)
	require.NoError(t, c.Insert(true))
	m.AssertExpectations(t)
}

func TestInsert_Retract(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("ULTRASCAN;INSERT;FALSE")
	m.On("ReadString").Return("OK", nil).Once()

	c := New(m)
	require.NoError(t, c.Insert(false))
	m.AssertExpectations(t)
}

func TestAcquireImage(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("ULTRASCAN;ACQUIRE;0.250,C:\\temp\\frame.tif,TRUE")
	m.On("ReadString").Return("OK", nil).Once()

	c := New(m)
	require.NoError(t, c.AcquireImage(0.25, `C:\temp\frame.tif`, true))
	m.AssertExpectations(t)
}

func TestSendCommand_Err(t *testing.T) {
	m := transport.NewMock()
	m.OnWrite("ULTRASCAN;ACQUIRE;1.000,frame.tif,FALSE")
	m.On("ReadString").Return("ERR", nil).Once()

	c := New(m)
	err := c.AcquireImage(1, "frame.tif", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrBadResponse))
}
