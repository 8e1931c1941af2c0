package world

import (
	"context"

	"github.com/cory-johannsen/mudcore/internal/game/player"
)

// PlayerStore persists players.
type PlayerStore interface {
	// CreatePlayer inserts p. Returns ErrUsernameTaken when the username exists
	// and ErrNotFound when p.RoomID does not name a room.
	CreatePlayer(ctx context.Context, p *player.Player) error
	// GetPlayerByUsername returns ErrNotFound when no player has the username.
	GetPlayerByUsername(ctx context.Context, username string) (*player.Player, error)
	// GetPlayerByID returns ErrNotFound when the id is unknown.
	GetPlayerByID(ctx context.Context, id string) (*player.Player, error)
	// GetPlayersInRoom returns every stored player located in roomID,
	// online or not, ordered by username.
	GetPlayersInRoom(ctx context.Context, roomID string) ([]*player.Player, error)
	// UpdatePlayerLocation returns ErrNotFound when the player or room is missing.
	UpdatePlayerLocation(ctx context.Context, playerID, roomID string) error
	// SetPlayerAdmin returns ErrNotFound when the player is missing.
	SetPlayerAdmin(ctx context.Context, playerID string, admin bool) error
}

// ObjectStore persists rooms, items, and exits.
type ObjectStore interface {
	// CreateObject inserts o. Returns ErrInvalidObject for invariant violations
	// and ErrNotFound when o.ContainerID names neither an object nor a player.
	CreateObject(ctx context.Context, o *Object) error
	// EnsureObject inserts o unless an object with its id exists.
	// Postcondition: created reports whether an insert happened.
	EnsureObject(ctx context.Context, o *Object) (created bool, err error)
	// GetObject returns ErrNotFound when the id is unknown.
	GetObject(ctx context.Context, id string) (*Object, error)
	// GetRoom returns ErrNotFound for an unknown id and ErrNotRoom when the
	// object is not a room.
	GetRoom(ctx context.Context, id string) (*Object, error)
	// GetObjectsInContainer returns objects held by containerID in creation order.
	GetObjectsInContainer(ctx context.Context, containerID string) ([]*Object, error)
	// UpdateObjectDescription returns ErrNotFound when the id is unknown.
	UpdateObjectDescription(ctx context.Context, id, description string) error
	// MoveObject changes the container of an item. Returns ErrNotFound when
	// the object or container is missing.
	MoveObject(ctx context.Context, id, containerID string) error
	// DeleteObject removes the object and any exits touching it. Returns
	// ErrNotFound when the id is unknown.
	DeleteObject(ctx context.Context, id string) error

	// AddExit upserts the exit keyed by (roomID, direction). Returns
	// ErrNotFound when either room is missing.
	AddExit(ctx context.Context, roomID string, direction Direction, destinationID string) error
	// GetExit returns the exit keyed by (roomID, direction), or ErrNotFound.
	GetExit(ctx context.Context, roomID string, direction Direction) (*Exit, error)
	// GetExits returns the exits of roomID sorted by direction.
	GetExits(ctx context.Context, roomID string) ([]Exit, error)
	// DigRoom atomically inserts room and the exits from→room (direction) and
	// room→from (back).
	DigRoom(ctx context.Context, fromRoomID string, direction Direction, room *Object, back Direction) error
}

// Store is the full persistence contract the game consumes.
type Store interface {
	PlayerStore
	ObjectStore
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
