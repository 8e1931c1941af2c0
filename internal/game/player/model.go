// Package player defines the player domain model and pure creation logic.
package player

import "time"

// Attribute distribution parameters used at creation.
const (
	AttributeMean   = 100.0
	AttributeStdDev = 10.0
)

// Default derived stats for a new player.
const (
	DefaultHealth     = 500
	DefaultStamina    = 500
	DefaultInitiative = 100
	DefaultDefense    = 100
	DefaultArmor      = 0
)

// Attributes holds the six rolled attribute values for a player.
type Attributes struct {
	Dexterity  int
	Strength   int
	Vitality   int
	Perception int
	Willpower  int
	Charisma   int
}

// Stats holds derived combat-adjacent values.
type Stats struct {
	Health          int
	Stamina         int
	Initiative      int
	PhysicalDefense int
	MysticalDefense int
	PhysicalArmor   int
	MysticalArmor   int
}

// DefaultStats returns the stats every new player starts with.
func DefaultStats() Stats {
	return Stats{
		Health:          DefaultHealth,
		Stamina:         DefaultStamina,
		Initiative:      DefaultInitiative,
		PhysicalDefense: DefaultDefense,
		MysticalDefense: DefaultDefense,
		PhysicalArmor:   DefaultArmor,
		MysticalArmor:   DefaultArmor,
	}
}

// Player represents a player's persistent state.
//
// ID is assigned at creation; CreatedAt is set by the persistence layer.
type Player struct {
	ID           string
	Username     string
	PasswordHash string
	RoomID       string // current room ID
	IsAdmin      bool

	Attributes Attributes
	Stats      Stats

	CreatedAt time.Time
}
