package player

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Registration validation errors.
var (
	ErrInvalidUsername = errors.New("username must be 3-32 characters of letters, digits, or underscores")
	ErrInvalidPassword = errors.New("password must be 6-72 characters")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidateUsername reports whether name is an acceptable username.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword reports whether password is acceptable. The upper bound
// is bcrypt's input limit.
func ValidatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

// AttributeRoller draws one value from a normal distribution.
// *dice.Roller satisfies it.
type AttributeRoller interface {
	Normal(label string, mean, stddev float64) int
}

// RollAttributes draws every attribute independently from
// Normal(AttributeMean, AttributeStdDev).
//
// Precondition: r must be non-nil.
func RollAttributes(r AttributeRoller) Attributes {
	roll := func(label string) int {
		return r.Normal(label, AttributeMean, AttributeStdDev)
	}
	return Attributes{
		Dexterity:  roll("dexterity"),
		Strength:   roll("strength"),
		Vitality:   roll("vitality"),
		Perception: roll("perception"),
		Willpower:  roll("willpower"),
		Charisma:   roll("charisma"),
	}
}

// New constructs a Player with a fresh id, rolled attributes, and default
// stats, placed in roomID. The player is not an admin.
//
// Precondition: username must pass ValidateUsername; passwordHash and roomID
// must be non-empty; r must be non-nil.
// Postcondition: Returns a Player ready for persistence, or a non-nil error.
func New(username, passwordHash, roomID string, r AttributeRoller) (*Player, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, errors.New("password hash must not be empty")
	}
	if roomID == "" {
		return nil, fmt.Errorf("player %q: room id must not be empty", username)
	}
	return &Player{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		RoomID:       roomID,
		Attributes:   RollAttributes(r),
		Stats:        DefaultStats(),
	}, nil
}
