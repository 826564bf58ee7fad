package tcp

import (
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/transport"
)

// echoServer answers every received line with the canned replies in order.
func echoServer(t *testing.T, replies []string) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 256)
		for _, reply := range replies {
			if _, err := conn.Read(buf); err != nil {
				return
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestConn_QuerySingleRead(t *testing.T) {
	host, port := echoServer(t, []string{"OK"})

	cfg, err := NewConfig(host, port, WithReadTimeout(2*time.Second))
	require.NoError(t, err)

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := conn.Query("ULTRASCAN;INSERT;TRUE")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)
}

func TestConn_QueryTerminatorFraming(t *testing.T) {
	host, port := echoServer(t, []string{"0,EndOfAPI"})

	cfg, err := NewConfig(host, port,
		WithReadTimeout(2*time.Second),
		WithReadTerminator("EndOfAPI"),
	)
	require.NoError(t, err)

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := conn.Query("GroupKill(GROUP5)")
	require.NoError(t, err)
	assert.Equal(t, "0,", resp)
}

func TestConn_ReadTimeout(t *testing.T) {
	// Server never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, _ := ln.Accept()
		if conn != nil {
			defer conn.Close()
			_, _ = io.Copy(io.Discard, conn)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg, err := NewConfig("127.0.0.1", port, WithReadTimeout(50*time.Millisecond))
	require.NoError(t, err)

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadString()
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrTimeout))
}

func TestConn_ClosedErrors(t *testing.T) {
	host, port := echoServer(t, nil)

	cfg, err := NewConfig(host, port)
	require.NoError(t, err)

	conn, err := Dial(cfg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close()) // idempotent

	_, err = conn.WriteString("x")
	assert.True(t, errors.Is(err, transport.ErrClosed))

	_, err = conn.ReadString()
	assert.True(t, errors.Is(err, transport.ErrClosed))
}

func TestDial_NilConfig(t *testing.T) {
	_, err := Dial(nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, transport.ErrBadResponse))
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig("", 5001)
	assert.Error(t, err)

	_, err = NewConfig("127.0.0.1", -1)
	assert.Error(t, err)

	_, err = NewConfig("127.0.0.1", 70000)
	assert.Error(t, err)

	cfg, err := NewConfig("xps.lab.local", 5001)
	require.NoError(t, err)
	assert.Equal(t, "xps.lab.local:"+strconv.Itoa(5001), cfg.Addr())
}
