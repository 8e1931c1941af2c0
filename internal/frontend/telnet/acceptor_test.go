package telnet

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/mudcore/internal/config"
)

// echoHandler is a test SessionHandler that echoes lines back to the client.
type echoHandler struct {
	sessionCount atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessionCount.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "quit" {
			_ = conn.WriteText("bye\n")
			return nil
		}
		_ = conn.WriteText("echo: " + line + "\n")
	}
}

// waitHandler blocks until its context is cancelled.
type waitHandler struct {
	cancelled atomic.Bool
}

func (h *waitHandler) HandleSession(ctx context.Context, _ *Conn) error {
	<-ctx.Done()
	h.cancelled.Store(true)
	return ctx.Err()
}

type countingRecorder struct {
	n atomic.Int32
}

func (r *countingRecorder) ConnectionAccepted(transport string) {
	if transport == "telnet" {
		r.n.Add(1)
	}
}

func testConfig() config.TelnetConfig {
	return config.TelnetConfig{
		Host:         "127.0.0.1",
		Port:         0, // random port
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func startAcceptor(t *testing.T, handler SessionHandler, rec Recorder) (*Acceptor, <-chan error) {
	t.Helper()
	acc := NewAcceptor(testConfig(), handler, rec, zaptest.NewLogger(t))
	require.NoError(t, acc.Listen())
	require.True(t, acc.IsRunning())
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Serve() }()
	t.Cleanup(acc.Stop)
	return acc, errCh
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	// Initial negotiation: IAC WILL SUPPRESS-GO-AHEAD.
	neg := make([]byte, 3)
	_, err = io.ReadFull(r, neg)
	require.NoError(t, err)
	assert.Equal(t, []byte{IAC, WILL, OptSuppressGoAhead}, neg)
	return conn, r
}

func TestAcceptorStartAndStop(t *testing.T) {
	handler := &echoHandler{}
	rec := &countingRecorder{}
	acc, errCh := startAcceptor(t, handler, rec)

	addr := acc.Addr()
	require.NotEmpty(t, addr)

	conn, r := dial(t, addr)

	_, err := conn.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo: hello\r\n", line)

	_, _ = conn.Write([]byte("quit\r\n"))
	line, _ = r.ReadString('\n')
	assert.Equal(t, "bye\r\n", line)
	conn.Close()

	acc.Stop()
	assert.False(t, acc.IsRunning())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop in time")
	}

	assert.Equal(t, int32(1), handler.sessionCount.Load())
	assert.Equal(t, int32(1), rec.n.Load())
}

func TestAcceptorMultipleClients(t *testing.T) {
	handler := &echoHandler{}
	acc, _ := startAcceptor(t, handler, nil)

	const numClients = 3
	for i := 0; i < numClients; i++ {
		conn, r := dial(t, acc.Addr())
		_, _ = conn.Write([]byte("quit\r\n"))
		line, _ := r.ReadString('\n')
		assert.True(t, strings.HasPrefix(line, "bye"))
		conn.Close()
	}

	acc.Stop()
	assert.Equal(t, int32(numClients), handler.sessionCount.Load())
}

func TestAcceptorStopCancelsSessions(t *testing.T) {
	handler := &waitHandler{}
	acc, _ := startAcceptor(t, handler, nil)

	conn, _ := dial(t, acc.Addr())
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		acc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, handler.cancelled.Load())
}

func TestAcceptorStopIsIdempotent(t *testing.T) {
	acc, _ := startAcceptor(t, &echoHandler{}, nil)
	acc.Stop()
	acc.Stop()
	assert.False(t, acc.IsRunning())
}

func TestAcceptorListenFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	cfg.Port = occupied.Addr().(*net.TCPAddr).Port
	acc := NewAcceptor(cfg, &echoHandler{}, nil, zaptest.NewLogger(t))
	assert.Error(t, acc.Listen())
}

func TestServeBeforeListen(t *testing.T) {
	acc := NewAcceptor(testConfig(), &echoHandler{}, nil, zaptest.NewLogger(t))
	assert.Error(t, acc.Serve())
}
