// Package world provides the storage-backed world model: rooms, items,
// directional exits, and the navigation and containment queries built on them.
package world

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direction labels an exit. Navigation only ever uses the six canonical
// directions; exits created by @dig may also carry Enter or Back.
type Direction string

// Canonical directions.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Non-canonical labels used by @dig.
const (
	// Enter is the label used when @dig is given an unrecognised direction.
	Enter Direction = "enter"
	// Back is the opposite of every non-canonical direction.
	Back Direction = "back"
)

// CanonicalDirections lists the six navigable directions in display order.
var CanonicalDirections = []Direction{North, South, East, West, Up, Down}

var directionAliases = map[string]Direction{
	"north": North, "n": North,
	"south": South, "s": South,
	"east": East, "e": East,
	"west": West, "w": West,
	"up": Up, "u": Up,
	"down": Down, "d": Down,
}

// ParseDirection resolves a direction word or single-letter abbreviation,
// case-insensitively, to its canonical Direction.
//
// Postcondition: Returns (d, true) with d canonical, or ("", false).
func ParseDirection(s string) (Direction, bool) {
	d, ok := directionAliases[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// DigDirection resolves @dig direction input: canonical when recognised,
// Enter otherwise.
func DigDirection(s string) Direction {
	if d, ok := ParseDirection(s); ok {
		return d
	}
	return Enter
}

// IsCanonical reports whether d is one of the six canonical directions.
func (d Direction) IsCanonical() bool {
	for _, c := range CanonicalDirections {
		if d == c {
			return true
		}
	}
	return false
}

// Opposite returns the structural opposite of d. Every non-canonical
// direction maps to Back.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return Back
	}
}

// Normalize lower-cases and trims a direction label for storage.
func (d Direction) Normalize() Direction {
	return Direction(strings.ToLower(strings.TrimSpace(string(d))))
}

// Kind distinguishes the GameObject variants.
type Kind string

// Object kinds.
const (
	KindRoom Kind = "room"
	KindItem Kind = "item"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRoom || k == KindItem
}

// Object is a room or an item.
//
// Invariant: rooms have an empty ContainerID. A non-empty ContainerID names an
// existing object or player.
type Object struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	ContainerID string
	Properties  map[string]any
	CreatedAt   time.Time
}

// IsRoom reports whether the object is a room.
func (o *Object) IsRoom() bool { return o.Kind == KindRoom }

// NewRoom returns an unsaved room with a fresh id.
func NewRoom(name, description string) *Object {
	return &Object{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Kind:        KindRoom,
		Properties:  map[string]any{},
	}
}

// NewItem returns an unsaved item with a fresh id held by containerID.
func NewItem(name, description, containerID string) *Object {
	return &Object{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Kind:        KindItem,
		ContainerID: containerID,
		Properties:  map[string]any{},
	}
}

// Exit is a directed edge from RoomID to DestinationID.
type Exit struct {
	RoomID        string
	Direction     Direction
	DestinationID string
}

// Storage failures surfaced to callers. Backends wrap these with context;
// test with errors.Is.
var (
	// ErrNotFound means the referenced player, object, or room does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotRoom means the object exists but is not a room.
	ErrNotRoom = errors.New("object is not a room")
	// ErrUsernameTaken means a player with the username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidObject means the object violates a model invariant.
	ErrInvalidObject = errors.New("invalid object")
)

// Navigation failures.
var (
	// ErrNoExit means the room has no exit in the requested direction.
	ErrNoExit = errors.New("no exit in that direction")
	// ErrInvalidDirection means the direction is not canonical.
	ErrInvalidDirection = errors.New("direction is not navigable")
)

// ValidateObject checks the model invariants a backend enforces before insert.
func ValidateObject(o *Object) error {
	switch {
	case o == nil:
		return ErrInvalidObject
	case o.ID == "":
		return errors.Join(ErrInvalidObject, errors.New("id must not be empty"))
	case !o.Kind.Valid():
		return errors.Join(ErrInvalidObject, errors.New("unknown kind "+string(o.Kind)))
	case o.Kind == KindRoom && o.ContainerID != "":
		return errors.Join(ErrInvalidObject, errors.New("rooms cannot be contained"))
	}
	return nil
}
