package world

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/player"
)

// RoomView is everything visible from inside a room.
type RoomView struct {
	Room      *Object
	Contents  []*Object
	Occupants []*player.Player // stored occupants other than the viewer
	Exits     []Exit
}

// MoveResult describes a completed move.
type MoveResult struct {
	Player    *player.Player // with RoomID updated to To
	Direction Direction
	From      string
	To        string
}

// DigResult describes a room created by Dig.
type DigResult struct {
	Room      *Object
	Direction Direction
	Back      Direction
}

// Service answers navigation and containment queries over a Store.
// It holds no world state of its own.
type Service struct {
	store     Store
	startRoom string
	logger    *zap.Logger
}

// NewService creates a Service.
//
// Precondition: store and logger must be non-nil; startRoom must be non-empty.
func NewService(store Store, startRoom string, logger *zap.Logger) *Service {
	return &Service{store: store, startRoom: startRoom, logger: logger}
}

// Store returns the backing store.
func (s *Service) Store() Store { return s.store }

// StartRoom returns the id of the room new players begin in.
func (s *Service) StartRoom() string { return s.startRoom }

// Player fetches the current stored record of a player.
func (s *Service) Player(ctx context.Context, playerID string) (*player.Player, error) {
	return s.store.GetPlayerByID(ctx, playerID)
}

// Look assembles the view from the viewer's current room.
//
// Postcondition: Occupants excludes viewer; Exits are sorted by direction.
func (s *Service) Look(ctx context.Context, viewer *player.Player) (*RoomView, error) {
	room, err := s.store.GetRoom(ctx, viewer.RoomID)
	if err != nil {
		return nil, fmt.Errorf("loading room %q: %w", viewer.RoomID, err)
	}
	contents, err := s.store.GetObjectsInContainer(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("listing contents of %q: %w", room.ID, err)
	}
	present, err := s.store.GetPlayersInRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("listing players in %q: %w", room.ID, err)
	}
	exits, err := s.store.GetExits(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("listing exits of %q: %w", room.ID, err)
	}

	view := &RoomView{Room: room, Contents: contents, Exits: exits}
	for _, p := range present {
		if p.ID != viewer.ID {
			view.Occupants = append(view.Occupants, p)
		}
	}
	return view, nil
}

// Move sends p through the exit in dir. Only the player's room changes;
// objects the player holds stay contained by the player.
//
// Precondition: dir must be canonical.
// Postcondition: Returns ErrNoExit and performs no write when the room has no
// such exit.
func (s *Service) Move(ctx context.Context, p *player.Player, dir Direction) (*MoveResult, error) {
	if !dir.IsCanonical() {
		return nil, fmt.Errorf("%q: %w", dir, ErrInvalidDirection)
	}
	exit, err := s.store.GetExit(ctx, p.RoomID, dir)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("no exit %q from %q: %w", dir, p.RoomID, ErrNoExit)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving exit %q from %q: %w", dir, p.RoomID, err)
	}
	dest := exit.DestinationID
	if err := s.store.UpdatePlayerLocation(ctx, p.ID, dest); err != nil {
		return nil, fmt.Errorf("moving %q to %q: %w", p.ID, dest, err)
	}

	from := p.RoomID
	moved := *p
	moved.RoomID = dest
	s.logger.Debug("player moved",
		zap.String("player", p.Username),
		zap.String("from", from),
		zap.String("to", dest),
		zap.String("direction", string(dir)),
	)
	return &MoveResult{Player: &moved, Direction: dir, From: from, To: dest}, nil
}

// Dig creates a room reachable from fromRoomID through the direction derived
// from input, plus the reciprocal exit back, in one store transaction.
func (s *Service) Dig(ctx context.Context, fromRoomID, input, name, description string) (*DigResult, error) {
	if _, err := s.store.GetRoom(ctx, fromRoomID); err != nil {
		return nil, fmt.Errorf("loading room %q: %w", fromRoomID, err)
	}
	dir := DigDirection(input)
	back := dir.Opposite()
	room := NewRoom(name, description)
	if err := s.store.DigRoom(ctx, fromRoomID, dir, room, back); err != nil {
		return nil, fmt.Errorf("digging %q from %q: %w", dir, fromRoomID, err)
	}
	s.logger.Info("room dug",
		zap.String("from", fromRoomID),
		zap.String("room", room.ID),
		zap.String("direction", string(dir)),
		zap.String("back", string(back)),
	)
	return &DigResult{Room: room, Direction: dir, Back: back}, nil
}

// CreateItem creates an item held by containerID.
func (s *Service) CreateItem(ctx context.Context, containerID, name, description string) (*Object, error) {
	item := NewItem(name, description, containerID)
	if err := s.store.CreateObject(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item %q: %w", name, err)
	}
	return item, nil
}

// Describe overwrites the description of a room.
func (s *Service) Describe(ctx context.Context, roomID, description string) error {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return fmt.Errorf("loading room %q: %w", roomID, err)
	}
	if err := s.store.UpdateObjectDescription(ctx, roomID, description); err != nil {
		return fmt.Errorf("describing room %q: %w", roomID, err)
	}
	return nil
}

// Inventory lists the objects held by the player.
func (s *Service) Inventory(ctx context.Context, playerID string) ([]*Object, error) {
	return s.store.GetObjectsInContainer(ctx, playerID)
}

// FindItem returns the first item in containerID whose name matches name
// case-insensitively, or ErrNotFound.
func (s *Service) FindItem(ctx context.Context, containerID, name string) (*Object, error) {
	objs, err := s.store.GetObjectsInContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("listing contents of %q: %w", containerID, err)
	}
	for _, o := range objs {
		if o.Kind == KindItem && strings.EqualFold(o.Name, name) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("item %q in %q: %w", name, containerID, ErrNotFound)
}

// Take moves a named item from the player's room into the player's inventory.
func (s *Service) Take(ctx context.Context, p *player.Player, name string) (*Object, error) {
	return s.transfer(ctx, p.RoomID, p.ID, name)
}

// Drop moves a named item from the player's inventory into the player's room.
func (s *Service) Drop(ctx context.Context, p *player.Player, name string) (*Object, error) {
	return s.transfer(ctx, p.ID, p.RoomID, name)
}

func (s *Service) transfer(ctx context.Context, from, to, name string) (*Object, error) {
	item, err := s.FindItem(ctx, from, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.MoveObject(ctx, item.ID, to); err != nil {
		return nil, fmt.Errorf("moving %q to %q: %w", item.ID, to, err)
	}
	item.ContainerID = to
	return item, nil
}

// Destroy deletes a named item in roomID.
func (s *Service) Destroy(ctx context.Context, roomID, name string) (*Object, error) {
	item, err := s.FindItem(ctx, roomID, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteObject(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("deleting %q: %w", item.ID, err)
	}
	return item, nil
}
