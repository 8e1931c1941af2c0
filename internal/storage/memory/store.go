// Package memory provides an in-process world.Store for development and tests.
// State is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

type exitKey struct {
	room      string
	direction world.Direction
}

// Store is a mutex-guarded world.Store. All returned values are copies.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	seq     int64
	players map[string]*player.Player
	byName  map[string]string // username -> player id
	objects map[string]*storedObject
	exits   map[exitKey]string
}

type storedObject struct {
	obj *world.Object
	seq int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:     time.Now,
		players: make(map[string]*player.Player),
		byName:  make(map[string]string),
		objects: make(map[string]*storedObject),
		exits:   make(map[exitKey]string),
	}
}

var _ world.Store = (*Store)(nil)

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copyPlayer(p *player.Player) *player.Player {
	c := *p
	return &c
}

func copyObject(o *world.Object) *world.Object {
	c := *o
	c.Properties = maps.Clone(o.Properties)
	if c.Properties == nil {
		c.Properties = map[string]any{}
	}
	return &c
}

// CreatePlayer implements world.PlayerStore.
func (s *Store) CreatePlayer(_ context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[p.Username]; taken {
		return fmt.Errorf("player %q: %w", p.Username, world.ErrUsernameTaken)
	}
	if _, dup := s.players[p.ID]; dup {
		return fmt.Errorf("player id %q already exists", p.ID)
	}
	if err := s.requireRoomLocked(p.RoomID); err != nil {
		return err
	}
	c := copyPlayer(p)
	c.CreatedAt = s.now()
	p.CreatedAt = c.CreatedAt
	s.players[c.ID] = c
	s.byName[c.Username] = c.ID
	return nil
}

// GetPlayerByUsername implements world.PlayerStore.
func (s *Store) GetPlayerByUsername(_ context.Context, username string) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, fmt.Errorf("player %q: %w", username, world.ErrNotFound)
	}
	return copyPlayer(s.players[id]), nil
}

// GetPlayerByID implements world.PlayerStore.
func (s *Store) GetPlayerByID(_ context.Context, id string) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("player %q: %w", id, world.ErrNotFound)
	}
	return copyPlayer(p), nil
}

// GetPlayersInRoom implements world.PlayerStore.
func (s *Store) GetPlayersInRoom(_ context.Context, roomID string) ([]*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*player.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, copyPlayer(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdatePlayerLocation implements world.PlayerStore.
func (s *Store) UpdatePlayerLocation(_ context.Context, playerID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return fmt.Errorf("player %q: %w", playerID, world.ErrNotFound)
	}
	if err := s.requireRoomLocked(roomID); err != nil {
		return err
	}
	p.RoomID = roomID
	return nil
}

// SetPlayerAdmin implements world.PlayerStore.
func (s *Store) SetPlayerAdmin(_ context.Context, playerID string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return fmt.Errorf("player %q: %w", playerID, world.ErrNotFound)
	}
	p.IsAdmin = admin
	return nil
}

func (s *Store) requireRoomLocked(id string) error {
	so, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("room %q: %w", id, world.ErrNotFound)
	}
	if !so.obj.IsRoom() {
		return fmt.Errorf("object %q: %w", id, world.ErrNotRoom)
	}
	return nil
}

func (s *Store) containerExistsLocked(id string) bool {
	if _, ok := s.objects[id]; ok {
		return true
	}
	_, ok := s.players[id]
	return ok
}

func (s *Store) insertLocked(o *world.Object) error {
	if err := world.ValidateObject(o); err != nil {
		return err
	}
	if o.ContainerID != "" && !s.containerExistsLocked(o.ContainerID) {
		return fmt.Errorf("container %q: %w", o.ContainerID, world.ErrNotFound)
	}
	c := copyObject(o)
	c.CreatedAt = s.now()
	o.CreatedAt = c.CreatedAt
	s.seq++
	s.objects[c.ID] = &storedObject{obj: c, seq: s.seq}
	return nil
}

// CreateObject implements world.ObjectStore.
func (s *Store) CreateObject(_ context.Context, o *world.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o != nil {
		if _, dup := s.objects[o.ID]; dup {
			return fmt.Errorf("object id %q already exists", o.ID)
		}
	}
	return s.insertLocked(o)
}

// EnsureObject implements world.ObjectStore.
func (s *Store) EnsureObject(_ context.Context, o *world.Object) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o != nil {
		if _, exists := s.objects[o.ID]; exists {
			return false, nil
		}
	}
	if err := s.insertLocked(o); err != nil {
		return false, err
	}
	return true, nil
}

// GetObject implements world.ObjectStore.
func (s *Store) GetObject(_ context.Context, id string) (*world.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	so, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	return copyObject(so.obj), nil
}

// GetRoom implements world.ObjectStore.
func (s *Store) GetRoom(_ context.Context, id string) (*world.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireRoomLocked(id); err != nil {
		return nil, err
	}
	return copyObject(s.objects[id].obj), nil
}

// GetObjectsInContainer implements world.ObjectStore.
func (s *Store) GetObjectsInContainer(_ context.Context, containerID string) ([]*world.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var held []*storedObject
	for _, so := range s.objects {
		if so.obj.ContainerID == containerID && containerID != "" {
			held = append(held, so)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].seq < held[j].seq })
	out := make([]*world.Object, 0, len(held))
	for _, so := range held {
		out = append(out, copyObject(so.obj))
	}
	return out, nil
}

// UpdateObjectDescription implements world.ObjectStore.
func (s *Store) UpdateObjectDescription(_ context.Context, id, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	so.obj.Description = description
	return nil
}

// MoveObject implements world.ObjectStore.
func (s *Store) MoveObject(_ context.Context, id, containerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	if so.obj.IsRoom() {
		return fmt.Errorf("object %q: rooms cannot be contained: %w", id, world.ErrInvalidObject)
	}
	if !s.containerExistsLocked(containerID) || containerID == id {
		return fmt.Errorf("container %q: %w", containerID, world.ErrNotFound)
	}
	so.obj.ContainerID = containerID
	return nil
}

// DeleteObject implements world.ObjectStore.
//
// Objects held by the deleted object are released (their container cleared),
// matching the ON DELETE SET NULL behaviour of the SQL backends.
func (s *Store) DeleteObject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	delete(s.objects, id)
	for k, dest := range s.exits {
		if k.room == id || dest == id {
			delete(s.exits, k)
		}
	}
	for _, so := range s.objects {
		if so.obj.ContainerID == id {
			so.obj.ContainerID = ""
		}
	}
	return nil
}

// AddExit implements world.ObjectStore.
func (s *Store) AddExit(_ context.Context, roomID string, direction world.Direction, destinationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addExitLocked(roomID, direction, destinationID)
}

func (s *Store) addExitLocked(roomID string, direction world.Direction, destinationID string) error {
	if err := s.requireRoomLocked(roomID); err != nil {
		return err
	}
	if err := s.requireRoomLocked(destinationID); err != nil {
		return err
	}
	dir := direction.Normalize()
	if dir == "" {
		return fmt.Errorf("exit from %q: empty direction", roomID)
	}
	s.exits[exitKey{room: roomID, direction: dir}] = destinationID
	return nil
}

// GetExit implements world.ObjectStore.
func (s *Store) GetExit(_ context.Context, roomID string, direction world.Direction) (*world.Exit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir := direction.Normalize()
	dest, ok := s.exits[exitKey{room: roomID, direction: dir}]
	if !ok {
		return nil, fmt.Errorf("exit %q from %q: %w", dir, roomID, world.ErrNotFound)
	}
	return &world.Exit{RoomID: roomID, Direction: dir, DestinationID: dest}, nil
}

// GetExits implements world.ObjectStore.
func (s *Store) GetExits(_ context.Context, roomID string) ([]world.Exit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []world.Exit
	for k, dest := range s.exits {
		if k.room == roomID {
			out = append(out, world.Exit{RoomID: roomID, Direction: k.direction, DestinationID: dest})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Direction < out[j].Direction })
	return out, nil
}

// DigRoom implements world.ObjectStore. The store lock makes the three
// writes a single step.
func (s *Store) DigRoom(_ context.Context, fromRoomID string, direction world.Direction, room *world.Object, back world.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRoomLocked(fromRoomID); err != nil {
		return err
	}
	if room == nil || !room.IsRoom() {
		return fmt.Errorf("dig: %w", world.ErrInvalidObject)
	}
	if direction.Normalize() == "" || back.Normalize() == "" {
		return fmt.Errorf("dig from %q: empty direction", fromRoomID)
	}
	if _, dup := s.objects[room.ID]; dup {
		return fmt.Errorf("object id %q already exists", room.ID)
	}
	if err := s.insertLocked(room); err != nil {
		return err
	}
	// Both rooms are known to exist, so neither exit insert can fail.
	_ = s.addExitLocked(fromRoomID, direction, room.ID)
	_ = s.addExitLocked(room.ID, back, fromRoomID)
	return nil
}
