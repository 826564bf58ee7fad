// Package delaystage provides the driver for the Newport XPS-Q8 motion
// controller driving the optical delay stage.
//
// The XPS speaks a function-call text protocol over TCP port 5001: commands
// look like "GroupMoveAbsolute(GROUP5.POSITIONER,1.5)" and every reply is a
// comma-separated list starting with an error code, terminated by the literal
// string "EndOfAPI".
package delaystage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uedlab/instctl/internal/util"
	"github.com/uedlab/instctl/tcp"
	"github.com/uedlab/instctl/transport"
)

// Port is the XPS command port. The controller listens on 5001 only.
const Port = 5001

// Light propagates through air slightly slower than through vacuum; the
// pump-probe time axis is set by the air path, so moves are computed with the
// corrected speed.
const (
	cVacuum            = 299792458.0 // m/s
	airRefractiveIndex = 1.0003
	cAir               = cVacuum / airRefractiveIndex
)

// DefaultGroup is the motion group the stage is wired to on our controller.
const DefaultGroup = "GROUP5"

// APIError is a non-zero error code returned by the controller.
type APIError int

// Error codes the XPS-Q8 can return.
const (
	ErrSocketConnection         APIError = -1
	ErrWrongObjectType          APIError = -8
	ErrParameterOutOfRange      APIError = -17
	ErrPositionerNameUnknown    APIError = -18
	ErrGroupNameUnknown         APIError = -19
	ErrNotAllowedAction         APIError = -22
	ErrFollowing                APIError = -25
	ErrEmergencySignal          APIError = -26
	ErrMoveAborted              APIError = -27
	ErrHomeSearchTimeout        APIError = -28
	ErrMotionDoneTimeout        APIError = -33
	ErrPositionOutsideLimits    APIError = -35
	ErrSlaveDisablingMaster     APIError = -44
	ErrInconsistentMechZero     APIError = -49
	ErrMotorInitialization      APIError = -50
	ErrBothEndRunsActivated     APIError = -113
	ErrWarningDuringMove        APIError = -120
	ErrUnexpectedFinalPosition  APIError = -221
)

var apiErrorText = map[APIError]string{
	ErrSocketConnection:        "socket connection error",
	ErrWrongObjectType:         "wrong object type for this command",
	ErrParameterOutOfRange:     "parameter out of range or incorrect",
	ErrPositionerNameUnknown:   "positioner name does not exist or unknown command",
	ErrGroupNameUnknown:        "group name does not exist or unknown command",
	ErrNotAllowedAction:        "not allowed action",
	ErrFollowing:               "following error",
	ErrEmergencySignal:         "emergency signal",
	ErrMoveAborted:             "move aborted",
	ErrHomeSearchTimeout:       "home search timeout",
	ErrMotionDoneTimeout:       "motion done timeout",
	ErrPositionOutsideLimits:   "position outside of travel limits",
	ErrSlaveDisablingMaster:    "slave error disabling master",
	ErrInconsistentMechZero:    "inconsistent mechanical zero",
	ErrMotorInitialization:     "motor initialization error",
	ErrBothEndRunsActivated:    "both end runs activated",
	ErrWarningDuringMove:       "warning during move",
	ErrUnexpectedFinalPosition: "not expected position after motion",
}

func (e APIError) Error() string {
	if text, ok := apiErrorText[e]; ok {
		return fmt.Sprintf("delaystage: %s (code %d)", text, int(e))
	}
	return fmt.Sprintf("delaystage: controller error code %d", int(e))
}

// XPSQ8 is a Newport XPS-Q8 controller with a single initialized and homed
// motion group.
type XPSQ8 struct {
	t          transport.Transport
	group      string
	positioner string

	minLimit float64
	maxLimit float64
}

// Option configures the controller wrapper.
type Option func(*XPSQ8)

// WithGroup selects the motion group. The positioner is always
// "<group>.POSITIONER".
func WithGroup(group string) Option {
	return func(s *XPSQ8) {
		s.group = group
		s.positioner = group + ".POSITIONER"
	}
}

// New kills, initializes and homes the motion group, then reads the user
// travel limits. The transport must frame replies on "EndOfAPI".
func New(t transport.Transport, opts ...Option) (*XPSQ8, error) {
	s := &XPSQ8{
		t:          t,
		group:      DefaultGroup,
		positioner: DefaultGroup + ".POSITIONER",
	}
	for _, opt := range opts {
		opt(s)
	}

	// Kill first so a group left in a fault state can be re-initialized.
	if _, err := s.exchange("KillAll()"); err != nil {
		return nil, err
	}
	if _, err := s.exchange(fmt.Sprintf("GroupInitialize(%s)", s.group)); err != nil {
		return nil, err
	}
	if _, err := s.exchange(fmt.Sprintf("GroupHomeSearch(%s)", s.group)); err != nil {
		return nil, err
	}

	fields, err := s.exchange(fmt.Sprintf("PositionerUserTravelLimitsGet(%s,double *,double *)", s.positioner))
	if err != nil {
		return nil, err
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("delaystage: travel limits reply has %d fields: %w", len(fields), transport.ErrBadResponse)
	}
	if s.minLimit, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return nil, fmt.Errorf("delaystage: minimum travel limit %q: %w", fields[0], transport.ErrBadResponse)
	}
	if s.maxLimit, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return nil, fmt.Errorf("delaystage: maximum travel limit %q: %w", fields[1], transport.ErrBadResponse)
	}

	return s, nil
}

// Open connects to the controller at the given IPv4 address and prepares the
// motion group as New does.
func Open(address string, opts ...Option) (*XPSQ8, error) {
	if !util.IsValidIP(address) {
		return nil, fmt.Errorf("delaystage: %q is not a valid IPv4 address", address)
	}

	cfg, err := tcp.NewConfig(address, Port, tcp.WithReadTerminator("EndOfAPI"))
	if err != nil {
		return nil, err
	}
	conn, err := tcp.Dial(cfg)
	if err != nil {
		return nil, err
	}

	stage, err := New(conn, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return stage, nil
}

// Close closes the connection to the controller.
func (s *XPSQ8) Close() error { return s.t.Close() }

// TravelLimits returns the positioner's user travel limits in millimeters.
func (s *XPSQ8) TravelLimits() (min, max float64) { return s.minLimit, s.maxLimit }

// exchange sends one command and returns the reply fields after the error
// code, which is checked and mapped to an APIError when non-zero.
func (s *XPSQ8) exchange(cmd string) ([]string, error) {
	raw, err := s.t.Query(cmd)
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "EndOfAPI"))
	reply = strings.TrimSuffix(reply, ",")
	fields := strings.Split(reply, ",")

	code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return nil, fmt.Errorf("delaystage: reply %q: %w", raw, transport.ErrBadResponse)
	}
	if code != 0 {
		return nil, APIError(code)
	}

	return fields[1:], nil
}

// CurrentPosition returns the absolute stage position in millimeters.
func (s *XPSQ8) CurrentPosition() (float64, error) {
	fields, err := s.exchange(fmt.Sprintf("GroupPositionCurrentGet(%s,double *)", s.positioner))
	if err != nil {
		return 0, err
	}
	if len(fields) < 1 {
		return 0, fmt.Errorf("delaystage: empty position reply: %w", transport.ErrBadResponse)
	}
	pos, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("delaystage: position %q: %w", fields[0], transport.ErrBadResponse)
	}

	return pos, nil
}

// AbsoluteMove moves the stage to a new absolute position in millimeters.
func (s *XPSQ8) AbsoluteMove(position float64) error {
	_, err := s.exchange(fmt.Sprintf("GroupMoveAbsolute(%s,%g)", s.positioner, position))
	return err
}

// RelativeMove moves the stage by a distance in millimeters relative to the
// current position.
func (s *XPSQ8) RelativeMove(distance float64) error {
	_, err := s.exchange(fmt.Sprintf("GroupMoveRelative(%s,%g)", s.positioner, distance))
	return err
}

// RelativeTimeShift moves the stage to shift the pump-probe delay by the
// given number of picoseconds. The beam folds back along the stage, so the
// stage moves half the extra path length.
func (s *XPSQ8) RelativeTimeShift(shiftPS float64) error {
	meters := shiftPS * 1e-12 * cAir / 2
	return s.RelativeMove(meters * 1e3)
}
