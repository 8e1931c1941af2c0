// Package ws carries the line protocol over websocket text frames, for
// browser clients. Each inbound frame holds one or more lines; each write is
// one outbound frame.
package ws

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn adapts a websocket connection to line reads and text writes.
// ReadLine must be called from a single goroutine; writes may be concurrent.
type Conn struct {
	ws        *websocket.Conn
	pending   []string
	mu        sync.Mutex
	closeOnce sync.Once

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps an upgraded websocket connection. A zero readTimeout lets
// reads block indefinitely.
func NewConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// ReadLine returns the next line, reading a new frame when none are queued.
// A normal close from the client is reported as io.EOF.
func (c *Conn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		if c.readTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return "", io.EOF
			}
			return "", err
		}
		c.pending = SplitLines(string(data))
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// ReadPassword reads a line. Browser clients mask their own input.
func (c *Conn) ReadPassword() (string, error) { return c.ReadLine() }

// WriteText sends text as one text frame.
func (c *Conn) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the connection. Repeated calls are
// no-ops.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.ws.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

// Transport names this connection type for logs and metrics.
func (c *Conn) Transport() string { return "websocket" }

// SplitLines breaks a frame into lines. A single trailing line terminator
// does not produce an extra empty line; an empty frame is one blank line.
func SplitLines(frame string) []string {
	frame = strings.ReplaceAll(frame, "\r\n", "\n")
	frame = strings.TrimSuffix(frame, "\n")
	return strings.Split(frame, "\n")
}
