// Package storetest holds the behavioural test suite every world.Store
// backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) world.Store

// seedRoom inserts a room with a fixed id.
func seedRoom(t *testing.T, s world.Store, id, name string) *world.Object {
	t.Helper()
	room := world.NewRoom(name, name+" description")
	room.ID = id
	require.NoError(t, s.CreateObject(context.Background(), room))
	return room
}

func newPlayer(t *testing.T, username, roomID string) *player.Player {
	t.Helper()
	return &player.Player{
		ID:           username + "-id",
		Username:     username,
		PasswordHash: "hash",
		RoomID:       roomID,
		Attributes: player.Attributes{
			Dexterity: 101, Strength: 102, Vitality: 103,
			Perception: 104, Willpower: 105, Charisma: 106,
		},
		Stats: player.DefaultStats(),
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	open := func(t *testing.T) world.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, open(t).Ping(context.Background()))
	})

	t.Run("PlayerRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room_start", "Start")
		p := newPlayer(t, "alice", "room_start")
		p.IsAdmin = true
		require.NoError(t, s.CreatePlayer(ctx, p))

		byName, err := s.GetPlayerByUsername(ctx, "alice")
		require.NoError(t, err)
		byID, err := s.GetPlayerByID(ctx, p.ID)
		require.NoError(t, err)
		for _, got := range []*player.Player{byName, byID} {
			assert.Equal(t, p.ID, got.ID)
			assert.Equal(t, "alice", got.Username)
			assert.Equal(t, "hash", got.PasswordHash)
			assert.Equal(t, "room_start", got.RoomID)
			assert.True(t, got.IsAdmin)
			assert.Equal(t, p.Attributes, got.Attributes)
			assert.Equal(t, p.Stats, got.Stats)
			assert.False(t, got.CreatedAt.IsZero())
		}
	})

	t.Run("PlayerNotFound", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.GetPlayerByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, world.ErrNotFound)
		_, err = s.GetPlayerByID(ctx, "missing")
		assert.ErrorIs(t, err, world.ErrNotFound)
		assert.ErrorIs(t, s.UpdatePlayerLocation(ctx, "missing", "room"), world.ErrNotFound)
		assert.ErrorIs(t, s.SetPlayerAdmin(ctx, "missing", true), world.ErrNotFound)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room_start", "Start")
		require.NoError(t, s.CreatePlayer(ctx, newPlayer(t, "bob", "room_start")))

		dup := newPlayer(t, "bob", "room_start")
		dup.ID = "other-id"
		assert.ErrorIs(t, s.CreatePlayer(ctx, dup), world.ErrUsernameTaken)

		players, err := s.GetPlayersInRoom(ctx, "room_start")
		require.NoError(t, err)
		assert.Len(t, players, 1, "no duplicate record may be created")
	})

	t.Run("CreatePlayerRequiresRoom", func(t *testing.T) {
		s := open(t)
		err := s.CreatePlayer(context.Background(), newPlayer(t, "carol", "nowhere"))
		assert.ErrorIs(t, err, world.ErrNotFound)
	})

	t.Run("PlayersInRoomAndLocation", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "a", "A")
		seedRoom(t, s, "b", "B")
		require.NoError(t, s.CreatePlayer(ctx, newPlayer(t, "zed", "a")))
		require.NoError(t, s.CreatePlayer(ctx, newPlayer(t, "amy", "a")))

		in, err := s.GetPlayersInRoom(ctx, "a")
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.Equal(t, "amy", in[0].Username, "ordered by username")

		require.NoError(t, s.UpdatePlayerLocation(ctx, "zed-id", "b"))
		assert.ErrorIs(t, s.UpdatePlayerLocation(ctx, "zed-id", "nowhere"), world.ErrNotFound)

		in, err = s.GetPlayersInRoom(ctx, "b")
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, "zed", in[0].Username)
	})

	t.Run("SetPlayerAdmin", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room_start", "Start")
		require.NoError(t, s.CreatePlayer(ctx, newPlayer(t, "dave", "room_start")))
		require.NoError(t, s.SetPlayerAdmin(ctx, "dave-id", true))
		got, err := s.GetPlayerByID(ctx, "dave-id")
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)
	})

	t.Run("GetRoomDistinguishesErrors", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room", "Room")
		item := world.NewItem("rock", "A rock.", "room")
		require.NoError(t, s.CreateObject(ctx, item))

		room, err := s.GetRoom(ctx, "room")
		require.NoError(t, err)
		assert.Equal(t, "Room", room.Name)
		assert.Equal(t, world.KindRoom, room.Kind)

		_, err = s.GetRoom(ctx, item.ID)
		assert.ErrorIs(t, err, world.ErrNotRoom)
		assert.NotErrorIs(t, err, world.ErrNotFound)

		_, err = s.GetRoom(ctx, "missing")
		assert.ErrorIs(t, err, world.ErrNotFound)
		assert.NotErrorIs(t, err, world.ErrNotRoom)
	})

	t.Run("ObjectRoundTripAndDelete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room", "Room")
		item := world.NewItem("lamp", "A brass lamp.", "room")
		item.Properties = map[string]any{"lit": true}
		require.NoError(t, s.CreateObject(ctx, item))

		held, err := s.GetObjectsInContainer(ctx, "room")
		require.NoError(t, err)
		require.Len(t, held, 1, "object listed exactly once")
		assert.Equal(t, item.ID, held[0].ID)
		assert.Equal(t, "room", held[0].ContainerID)
		assert.Equal(t, true, held[0].Properties["lit"])

		got, err := s.GetObject(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "A brass lamp.", got.Description)
		assert.Equal(t, world.KindItem, got.Kind)

		require.NoError(t, s.DeleteObject(ctx, item.ID))
		held, err = s.GetObjectsInContainer(ctx, "room")
		require.NoError(t, err)
		assert.Empty(t, held)
		assert.ErrorIs(t, s.DeleteObject(ctx, item.ID), world.ErrNotFound)
		_, err = s.GetObject(ctx, item.ID)
		assert.ErrorIs(t, err, world.ErrNotFound)
	})

	t.Run("ContentsInCreationOrder", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room", "Room")
		var ids []string
		for _, name := range []string{"c", "a", "b"} {
			it := world.NewItem(name, name, "room")
			require.NoError(t, s.CreateObject(ctx, it))
			ids = append(ids, it.ID)
		}
		held, err := s.GetObjectsInContainer(ctx, "room")
		require.NoError(t, err)
		require.Len(t, held, 3)
		for i, o := range held {
			assert.Equal(t, ids[i], o.ID)
		}
	})

	t.Run("ContainerMustExist", func(t *testing.T) {
		s := open(t)
		err := s.CreateObject(context.Background(), world.NewItem("ghost", "", "nowhere"))
		assert.ErrorIs(t, err, world.ErrNotFound)
	})

	t.Run("RoomCannotBeContained", func(t *testing.T) {
		s := open(t)
		seedRoom(t, s, "room", "Room")
		bad := world.NewRoom("Inner", "")
		bad.ContainerID = "room"
		assert.ErrorIs(t, s.CreateObject(context.Background(), bad), world.ErrInvalidObject)
	})

	t.Run("InventoryHeldByPlayer", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room", "Room")
		p := newPlayer(t, "erin", "room")
		require.NoError(t, s.CreatePlayer(ctx, p))
		item := world.NewItem("coin", "A coin.", p.ID)
		require.NoError(t, s.CreateObject(ctx, item))

		inv, err := s.GetObjectsInContainer(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, inv, 1)

		require.NoError(t, s.MoveObject(ctx, item.ID, "room"))
		inv, err = s.GetObjectsInContainer(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, inv)
		assert.ErrorIs(t, s.MoveObject(ctx, item.ID, "nowhere"), world.ErrNotFound)
		assert.ErrorIs(t, s.MoveObject(ctx, "missing", "room"), world.ErrNotFound)
	})

	t.Run("EnsureObjectIdempotent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		room := world.NewRoom("Start", "First.")
		room.ID = "room_start"
		created, err := s.EnsureObject(ctx, room)
		require.NoError(t, err)
		assert.True(t, created)

		again := world.NewRoom("Changed", "Second.")
		again.ID = "room_start"
		created, err = s.EnsureObject(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := s.GetRoom(ctx, "room_start")
		require.NoError(t, err)
		assert.Equal(t, "Start", got.Name, "existing object left untouched")
	})

	t.Run("UpdateDescription", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "room", "Room")
		require.NoError(t, s.UpdateObjectDescription(ctx, "room", "Dusty."))
		got, err := s.GetRoom(ctx, "room")
		require.NoError(t, err)
		assert.Equal(t, "Dusty.", got.Description)
		assert.ErrorIs(t, s.UpdateObjectDescription(ctx, "missing", "x"), world.ErrNotFound)
	})

	t.Run("ExitsUpsertSortedAndNormalized", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "a", "A")
		seedRoom(t, s, "b", "B")
		seedRoom(t, s, "c", "C")

		require.NoError(t, s.AddExit(ctx, "a", "West", "b"))
		require.NoError(t, s.AddExit(ctx, "a", world.East, "b"))
		require.NoError(t, s.AddExit(ctx, "a", world.East, "c"))

		exits, err := s.GetExits(ctx, "a")
		require.NoError(t, err)
		require.Len(t, exits, 2, "at most one exit per direction")
		assert.Equal(t, world.East, exits[0].Direction)
		assert.Equal(t, "c", exits[0].DestinationID, "upsert replaces destination")
		assert.Equal(t, world.West, exits[1].Direction, "labels are lower-cased")

		e, err := s.GetExit(ctx, "a", world.West)
		require.NoError(t, err)
		assert.Equal(t, "b", e.DestinationID)
		_, err = s.GetExit(ctx, "a", world.North)
		assert.ErrorIs(t, err, world.ErrNotFound)
	})

	t.Run("AddExitRequiresRooms", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "a", "A")
		assert.ErrorIs(t, s.AddExit(ctx, "a", world.North, "missing"), world.ErrNotFound)
		assert.ErrorIs(t, s.AddExit(ctx, "missing", world.North, "a"), world.ErrNotFound)
	})

	t.Run("DigRoom", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "a", "A")
		hall := world.NewRoom("Hall", "A long hall.")
		require.NoError(t, s.DigRoom(ctx, "a", world.East, hall, world.West))

		got, err := s.GetRoom(ctx, hall.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hall", got.Name)

		fwd, err := s.GetExit(ctx, "a", world.East)
		require.NoError(t, err)
		assert.Equal(t, hall.ID, fwd.DestinationID)
		back, err := s.GetExit(ctx, hall.ID, world.West)
		require.NoError(t, err)
		assert.Equal(t, "a", back.DestinationID)
	})

	t.Run("DigRoomFromMissingRoomWritesNothing", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		hall := world.NewRoom("Hall", "")
		assert.ErrorIs(t, s.DigRoom(ctx, "missing", world.East, hall, world.West), world.ErrNotFound)
		_, err := s.GetObject(ctx, hall.ID)
		assert.ErrorIs(t, err, world.ErrNotFound)
	})

	t.Run("DeleteRoomRemovesExits", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedRoom(t, s, "a", "A")
		seedRoom(t, s, "b", "B")
		require.NoError(t, s.AddExit(ctx, "a", world.North, "b"))
		require.NoError(t, s.AddExit(ctx, "b", world.South, "a"))

		require.NoError(t, s.DeleteObject(ctx, "b"))
		exits, err := s.GetExits(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, exits)
	})
}
