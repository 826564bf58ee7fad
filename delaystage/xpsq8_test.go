package delaystage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

func expectConnect(m *transport.Mock) {
	m.OnQuery("KillAll()", "0,,EndOfAPI")
	m.OnQuery("GroupInitialize(GROUP5)", "0,,EndOfAPI")
	m.OnQuery("GroupHomeSearch(GROUP5)", "0,,EndOfAPI")
	m.OnQuery("PositionerUserTravelLimitsGet(GROUP5.POSITIONER,double *,double *)", "0,-100.0,100.0,EndOfAPI")
}

func newTestStage(t *testing.T) (*XPSQ8, *transport.Mock) {
	t.Helper()

	m := transport.NewMock()
	expectConnect(m)

	s, err := New(m)
	require.NoError(t, err)

	return s, m
}

func TestNew_InitializesAndReadsLimits(t *testing.T) {
	s, m := newTestStage(t)

	min, max := s.TravelLimits()
	assert.Equal(t, -100.0, min)
	assert.Equal(t, 100.0, max)
	m.AssertExpectations(t)
}

func TestNew_HomeSearchFailure(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("KillAll()", "0,,EndOfAPI")
	m.OnQuery("GroupInitialize(GROUP5)", "0,,EndOfAPI")
	m.OnQuery("GroupHomeSearch(GROUP5)", "-28,,EndOfAPI")

	_, err := New(m)
	require.Error(t, err)

	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrHomeSearchTimeout, apiErr)
}

func TestCurrentPosition(t *testing.T) {
	s, m := newTestStage(t)
	m.OnQuery("GroupPositionCurrentGet(GROUP5.POSITIONER,double *)", "0,12.345,EndOfAPI")

	pos, err := s.CurrentPosition()
	require.NoError(t, err)
	assert.InDelta(t, 12.345, pos, 1e-9)
}

func TestAbsoluteMove_OutsideLimits(t *testing.T) {
	s, m := newTestStage(t)
	m.OnQuery("GroupMoveAbsolute(GROUP5.POSITIONER,250)", "-35,,EndOfAPI")

	err := s.AbsoluteMove(250)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPositionOutsideLimits))
}

func TestRelativeMove(t *testing.T) {
	s, m := newTestStage(t)
	m.OnQuery("GroupMoveRelative(GROUP5.POSITIONER,-1.5)", "0,,EndOfAPI")

	require.NoError(t, s.RelativeMove(-1.5))
	m.AssertExpectations(t)
}

func TestRelativeTimeShift_HalvesPathLength(t *testing.T) {
	s, m := newTestStage(t)

	// 10 ps of delay in air is about 2.998 mm of path, so the stage moves
	// half of that.
	shift := 10.0
	move := shift * 1e-12 * cAir / 2 * 1e3
	assert.InDelta(t, 1.4985, move, 1e-4)
	m.OnQuery(fmt.Sprintf("GroupMoveRelative(GROUP5.POSITIONER,%g)", move), "0,,EndOfAPI")

	require.NoError(t, s.RelativeTimeShift(shift))
	m.AssertExpectations(t)
}

func TestWithGroup(t *testing.T) {
	m := transport.NewMock()
	m.OnQuery("KillAll()", "0,,EndOfAPI")
	m.OnQuery("GroupInitialize(STAGE1)", "0,,EndOfAPI")
	m.OnQuery("GroupHomeSearch(STAGE1)", "0,,EndOfAPI")
	m.OnQuery("PositionerUserTravelLimitsGet(STAGE1.POSITIONER,double *,double *)", "0,0.0,300.0,EndOfAPI")

	_, err := New(m, WithGroup("STAGE1"))
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestAPIError_Text(t *testing.T) {
	assert.Contains(t, ErrMoveAborted.Error(), "move aborted")
	assert.Contains(t, APIError(-999).Error(), "-999")
}

func TestOpen_RejectsHostname(t *testing.T) {
	_, err := Open("xps.lab.local")
	require.Error(t, err)
}
