package transport

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// Mock is a testify-backed Transport for driver tests.
type Mock struct {
	mock.Mock
}

var _ Transport = (*Mock)(nil)
var _ Clearer = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) WriteString(s string) (int, error) {
	args := m.Called(s)
	return args.Int(0), args.Error(1)
}

func (m *Mock) ReadString() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *Mock) Query(cmd string) (string, error) {
	args := m.Called(cmd)
	return args.String(0), args.Error(1)
}

func (m *Mock) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// WaitSRQ mocks the SRQ wait of GPIB devices for drivers that gate reads on
// a service request.
func (m *Mock) WaitSRQ(timeout time.Duration) error {
	args := m.Called(timeout)
	return args.Error(0)
}

func (m *Mock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// OnQuery registers a canned reply for one query. Sugar over m.On.
func (m *Mock) OnQuery(cmd, reply string) *mock.Call {
	return m.On("Query", cmd).Return(reply, nil)
}

// OnWrite registers a successful write for one command. Sugar over m.On.
func (m *Mock) OnWrite(cmd string) *mock.Call {
	return m.On("WriteString", cmd).Return(len(cmd), nil)
}
