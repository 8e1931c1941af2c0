// Package session tracks which players are online and how to reach them.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/mudcore/internal/game/bus"
	"github.com/cory-johannsen/mudcore/internal/game/player"
)

// Session binds one connected player to the sink its connection drains.
//
// Fields are set by New and never modified afterwards.
type Session struct {
	// ID identifies this connection; a player who reconnects gets a new ID.
	ID string
	// PlayerID is the stored player id.
	PlayerID string
	// Username is the player's login name.
	Username string
	// Transport names the front end that owns the connection ("telnet", "websocket").
	Transport string
	// ConnectedAt records when the session was created.
	ConnectedAt time.Time

	sink *bus.Sink
}

// New creates a Session for p delivering into sink.
//
// Precondition: p and sink must be non-nil.
func New(p *player.Player, sink *bus.Sink, transport string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		PlayerID:    p.ID,
		Username:    p.Username,
		Transport:   transport,
		ConnectedAt: time.Now(),
		sink:        sink,
	}
}

// Sink returns the session's message sink.
func (s *Session) Sink() *bus.Sink { return s.sink }

// Send queues text for the connection. It never blocks and reports false once
// the session has been closed.
func (s *Session) Send(text string) bool { return s.sink.Deliver(text) }

// Close stops delivery and signals the owning connection to finish.
func (s *Session) Close() { s.sink.Close() }
