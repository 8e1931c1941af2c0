// Package handlers drives a client connection through the handshake and the
// active command loop. It is transport-neutral: telnet and websocket both feed
// it a LineConn.
package handlers

import (
	"context"
	"errors"
	"net"

	"github.com/cory-johannsen/mudcore/internal/frontend/telnet"
)

// LineConn is a line-oriented client connection.
// *telnet.Conn and *websocket.Conn satisfy it.
type LineConn interface {
	// ReadLine blocks for the next input line, without its terminator.
	ReadLine() (string, error)
	// ReadPassword reads a line the client should not echo.
	ReadPassword() (string, error)
	// WriteText writes server text using "\n" line endings.
	WriteText(text string) error
	// Close closes the connection and unblocks a pending ReadLine.
	Close() error
	RemoteAddr() net.Addr
	// Transport names the connection type, e.g. "telnet".
	Transport() string
}

var _ LineConn = (*telnet.Conn)(nil)

// Handshake failures. Each one ends the connection.
var (
	// ErrServerFull means the connection arrived with max_users online.
	ErrServerFull = errors.New("server full")
	// ErrInvalidChoice means the mode answer was neither L nor R.
	ErrInvalidChoice = errors.New("invalid login/register choice")
	// ErrAuthFailed means the username or password did not match.
	ErrAuthFailed = errors.New("invalid credentials")
	// ErrRegistrationFailed means a new player could not be stored.
	ErrRegistrationFailed = errors.New("registration failed")
)

// Reasons the active loop ended without a read error.
var (
	// ErrEvicted means a newer login for the same player took over.
	ErrEvicted = errors.New("session replaced by a newer login")
	// ErrIdle means the client sent nothing within the read timeout.
	ErrIdle = errors.New("idle timeout")
)

// HandleSession implements telnet.SessionHandler.
func (h *Handler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return h.Serve(ctx, conn)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
