package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/mudcore/internal/game/player"
)

// RoomLister reports the stored occupants of a room.
type RoomLister interface {
	GetPlayersInRoom(ctx context.Context, roomID string) ([]*player.Player, error)
}

// Recorder receives session counters. *observability.Metrics satisfies it.
type Recorder interface {
	SessionOpened()
	SessionClosed()
}

// Registry holds exactly one Session per online player id.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // player id → session
	rooms    RoomLister
	recorder Recorder
}

// NewRegistry creates an empty Registry.
//
// Precondition: rooms must be non-nil. recorder may be nil.
func NewRegistry(rooms RoomLister, recorder Recorder) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    rooms,
		recorder: recorder,
	}
}

// Register makes sess the live session for its player.
//
// Postcondition: Returns the session it displaced, or nil. The caller is
// responsible for notifying and closing the displaced session.
func (r *Registry) Register(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[sess.PlayerID]
	r.sessions[sess.PlayerID] = sess
	if prev == nil && r.recorder != nil {
		r.recorder.SessionOpened()
	}
	return prev
}

// Deregister removes the session for playerID, if any.
//
// Postcondition: Reports whether a session was removed. Calling it again is a
// no-op.
func (r *Registry) Deregister(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(playerID)
}

// Release removes sess only while it is still the live session for its
// player, so a connection that was displaced cannot remove its successor.
func (r *Registry) Release(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[sess.PlayerID] != sess {
		return false
	}
	return r.removeLocked(sess.PlayerID)
}

func (r *Registry) removeLocked(playerID string) bool {
	if _, ok := r.sessions[playerID]; !ok {
		return false
	}
	delete(r.sessions, playerID)
	if r.recorder != nil {
		r.recorder.SessionClosed()
	}
	return true
}

// Lookup returns the live session for playerID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) Lookup(playerID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[playerID]
	return sess, ok
}

// Count returns the number of online players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns every live session ordered by username.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// ListInRoom returns the stored occupants of roomID. Room membership comes
// from storage, so offline players are included.
func (r *Registry) ListInRoom(ctx context.Context, roomID string) ([]*player.Player, error) {
	players, err := r.rooms.GetPlayersInRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing players in %q: %w", roomID, err)
	}
	return players, nil
}

// OnlineInRoom returns the live sessions of the players stored in roomID,
// in storage order.
func (r *Registry) OnlineInRoom(ctx context.Context, roomID string) ([]*Session, error) {
	players, err := r.ListInRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(players))
	for _, p := range players {
		if sess, ok := r.sessions[p.ID]; ok {
			out = append(out, sess)
		}
	}
	return out, nil
}

// Online filters players down to those with a live session, preserving order.
func (r *Registry) Online(players []*player.Player) []*player.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*player.Player
	for _, p := range players {
		if _, ok := r.sessions[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}
