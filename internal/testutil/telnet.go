package testutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// DefaultTimeout bounds every client read unless a caller passes its own.
const DefaultTimeout = 5 * time.Second

// TelnetClient drives the text protocol over a raw TCP connection.
// Bytes read past a match are kept for the next read.
type TelnetClient struct {
	conn    net.Conn
	pending strings.Builder
	t       *testing.T
}

// NewTelnetClient dials addr and returns a test client closed at cleanup.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() { _ = conn.Close() })

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears and returns everything up to and
// including it. Output after the match stays buffered.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns output ending in substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	out, err := c.readUntil(substr, timeout)
	if err != nil {
		c.t.Fatalf("reading until %q: got %q, error: %v", substr, out, err)
	}
	return out
}

func (c *TelnetClient) readUntil(substr string, timeout time.Duration) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	tmp := make([]byte, 1024)
	for {
		buffered := c.pending.String()
		if i := strings.Index(buffered, substr); i >= 0 {
			end := i + len(substr)
			c.pending.Reset()
			c.pending.WriteString(buffered[end:])
			return buffered[:end], nil
		}
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.pending.Write(tmp[:n])
			continue
		}
		if err != nil {
			return buffered, err
		}
	}
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Command sends line and returns the output up to the next occurrence of
// until.
func (c *TelnetClient) Command(line, until string) string {
	c.t.Helper()
	c.Send(line)
	return c.ReadUntil(until, DefaultTimeout)
}

// Register walks the handshake choosing R and returns the output through the
// registration result line.
func (c *TelnetClient) Register(username, password string) string {
	c.t.Helper()
	return c.authenticate("R", username, password, "Registration successful!")
}

// Login walks the handshake choosing L and returns the output through the
// welcome line.
func (c *TelnetClient) Login(username, password string) string {
	c.t.Helper()
	return c.authenticate("L", username, password, "Welcome, "+username+"!")
}

func (c *TelnetClient) authenticate(choice, username, password, until string) string {
	c.t.Helper()
	c.ReadUntil("Login (L) or Register (R)? ", DefaultTimeout)
	c.Send(choice)
	c.ReadUntil("Username: ", DefaultTimeout)
	c.Send(username)
	c.ReadUntil("Password: ", DefaultTimeout)
	c.Send(password)
	return c.ReadUntil(until, DefaultTimeout)
}

// ExpectClosed reads until the server closes the connection and returns the
// remaining output.
func (c *TelnetClient) ExpectClosed(timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	rest, err := io.ReadAll(c.conn)
	out := c.pending.String() + string(rest)
	c.pending.Reset()
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatalf("connection still open after %s; got %q", timeout, out)
	}
	return out
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
