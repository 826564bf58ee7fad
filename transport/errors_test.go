package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_NilPassthrough(t *testing.T) {
	assert.NoError(t, NewError("query", "COM1", nil))
}

func TestNewError_WrapsSentinel(t *testing.T) {
	err := NewError("query", "COM1", ErrTimeout)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "COM1")
	assert.Contains(t, err.Error(), "query")
}

func TestNewError_InnermostWins(t *testing.T) {
	inner := NewError("read", "GPIB::24", ErrTimeout)
	outer := NewError("query", "GPIB::24", inner)

	var te *Error
	require.True(t, errors.As(outer, &te))
	assert.Equal(t, "read", te.Op)
	assert.True(t, errors.Is(outer, ErrTimeout))
}

func TestNewError_WrappedCauseSurvivesFmt(t *testing.T) {
	err := fmt.Errorf("pressure: degas refused: %w", NewError("query", "COM2", ErrBadResponse))
	assert.True(t, errors.Is(err, ErrBadResponse))

	var te *Error
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "COM2", te.Device)
}
