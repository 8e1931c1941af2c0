package world_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcore/internal/game/world"
)

func TestParseDirection(t *testing.T) {
	cases := map[string]world.Direction{
		"north": world.North, "n": world.North, "NORTH": world.North, " N ": world.North,
		"south": world.South, "s": world.South,
		"east": world.East, "e": world.East, "East": world.East,
		"west": world.West, "w": world.West,
		"up": world.Up, "u": world.Up,
		"down": world.Down, "d": world.Down,
	}
	for in, want := range cases {
		got, ok := world.ParseDirection(in)
		assert.True(t, ok, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
	for _, bad := range []string{"", "ne", "northeast", "enter", "back", "no", "x", "nn"} {
		_, ok := world.ParseDirection(bad)
		assert.False(t, ok, "input %q must not resolve", bad)
	}
}

func TestOpposite(t *testing.T) {
	pairs := [][2]world.Direction{
		{world.North, world.South},
		{world.East, world.West},
		{world.Up, world.Down},
	}
	for _, p := range pairs {
		assert.Equal(t, p[1], p[0].Opposite())
		assert.Equal(t, p[0], p[1].Opposite())
	}
	assert.Equal(t, world.Back, world.Enter.Opposite())
	assert.Equal(t, world.Back, world.Direction("portal").Opposite())
}

func TestDigDirection(t *testing.T) {
	assert.Equal(t, world.East, world.DigDirection("e"))
	assert.Equal(t, world.North, world.DigDirection("north"))
	assert.Equal(t, world.Enter, world.DigDirection("portal"))
	assert.Equal(t, world.Enter, world.DigDirection(""))
}

func TestValidateObject(t *testing.T) {
	assert.NoError(t, world.ValidateObject(world.NewRoom("A", "")))
	assert.NoError(t, world.ValidateObject(world.NewItem("x", "", "room")))
	assert.ErrorIs(t, world.ValidateObject(nil), world.ErrInvalidObject)

	noID := world.NewRoom("A", "")
	noID.ID = ""
	assert.ErrorIs(t, world.ValidateObject(noID), world.ErrInvalidObject)

	badKind := world.NewItem("x", "", "room")
	badKind.Kind = "npc"
	assert.ErrorIs(t, world.ValidateObject(badKind), world.ErrInvalidObject)
}

// Property: every resolvable token maps to exactly one canonical direction.
func TestPropertyParseDirectionCanonical(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tok := rapid.StringMatching(`[a-zA-Z]{0,8}`).Draw(rt, "token")
		d, ok := world.ParseDirection(tok)
		if !ok {
			return
		}
		if !d.IsCanonical() {
			rt.Fatalf("%q resolved to non-canonical %q", tok, d)
		}
		lower := strings.ToLower(tok)
		if lower != string(d) && lower != string(d)[:1] {
			rt.Fatalf("%q resolved to %q but is neither the word nor its abbreviation", tok, d)
		}
	})
}

// Property: Opposite is an involution on canonical directions.
func TestPropertyOppositeInvolution(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.SampledFrom(world.CanonicalDirections).Draw(rt, "dir")
		if d.Opposite().Opposite() != d {
			rt.Fatalf("opposite of opposite of %q is %q", d, d.Opposite().Opposite())
		}
		if !d.Opposite().IsCanonical() || d.Opposite() == d {
			rt.Fatalf("bad opposite %q for %q", d.Opposite(), d)
		}
	})
}
