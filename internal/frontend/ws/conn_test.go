package ws

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcore/internal/frontend/handlers"
)

// echoServer answers every line with "echo: <line>\n" until "quit", or
// returns when ctx ends.
type echoServer struct {
	served atomic.Int32
	ended  chan error
}

func newEchoServer() *echoServer { return &echoServer{ended: make(chan error, 4)} }

func (e *echoServer) Serve(ctx context.Context, conn handlers.LineConn) error {
	e.served.Add(1)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		line, err := conn.ReadLine()
		if err != nil {
			e.ended <- err
			return err
		}
		if line == "quit" {
			_ = conn.WriteText("bye\n")
			e.ended <- nil
			return nil
		}
		if err := conn.WriteText("echo: " + line + "\n"); err != nil {
			return err
		}
	}
}

func startServer(t *testing.T, sessions SessionServer, readTimeout time.Duration) (*Handler, string) {
	t.Helper()
	h := NewHandler(sessions, readTimeout, time.Second, nil, zaptest.NewLogger(t))
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	return c
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	kind, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	return string(data)
}

func TestConn_LinesRoundTrip(t *testing.T) {
	echo := newEchoServer()
	_, url := startServer(t, echo, 0)
	c := dial(t, url)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("look")))
	assert.Equal(t, "echo: look\n", readText(t, c))

	// One frame, two lines.
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("say hi\r\nwho\n")))
	assert.Equal(t, "echo: say hi\n", readText(t, c))
	assert.Equal(t, "echo: who\n", readText(t, c))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("quit")))
	assert.Equal(t, "bye\n", readText(t, c))
	assert.NoError(t, <-echo.ended)
	assert.Equal(t, int32(1), echo.served.Load())
}

func TestConn_ClientCloseIsEOF(t *testing.T) {
	echo := newEchoServer()
	_, url := startServer(t, echo, 0)
	c := dial(t, url)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case err := <-echo.ended:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestConn_ReadTimeout(t *testing.T) {
	echo := newEchoServer()
	_, url := startServer(t, echo, 100*time.Millisecond)
	dial(t, url)

	select {
	case err := <-echo.ended:
		require.Error(t, err)
		var ne interface{ Timeout() bool }
		require.ErrorAs(t, err, &ne)
		assert.True(t, ne.Timeout())
	case <-time.After(5 * time.Second):
		t.Fatal("read did not time out")
	}
}

func TestHandler_CloseEndsSessions(t *testing.T) {
	echo := newEchoServer()
	h, url := startServer(t, echo, 0)
	c := dial(t, url)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("ping")))
	readText(t, c)

	done := make(chan struct{})
	go func() {
		h.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	h := NewHandler(newEchoServer(), 0, time.Second, nil, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 400, rec.Code)
}

func TestHandler_RefusesAfterClose(t *testing.T) {
	h := NewHandler(newEchoServer(), 0, time.Second, nil, zaptest.NewLogger(t))
	h.Close()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"look"}, SplitLines("look"))
	assert.Equal(t, []string{"look"}, SplitLines("look\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\r\n"))
	assert.Equal(t, []string{""}, SplitLines(""))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
}

// Property: joining lines with "\n" and splitting yields the same lines.
func TestPropertySplitLines_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,12}`), 1, 8).Draw(t, "lines")
		got := SplitLines(strings.Join(lines, "\n") + "\n")
		if !assert.ObjectsAreEqual(lines, got) {
			t.Fatalf("got %q, want %q", got, lines)
		}
	})
}
