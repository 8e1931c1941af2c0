package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcore/internal/game/bus"
	"github.com/cory-johannsen/mudcore/internal/game/player"
)

type fakeRooms struct {
	byRoom map[string][]*player.Player
	err    error
}

func (f *fakeRooms) GetPlayersInRoom(_ context.Context, roomID string) ([]*player.Player, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byRoom[roomID], nil
}

type counter struct{ open, closed int }

func (c *counter) SessionOpened() { c.open++ }
func (c *counter) SessionClosed() { c.closed++ }

func newSession(id, username string) *Session {
	return New(&player.Player{ID: id, Username: username}, bus.NewSink(4, nil), "telnet")
}

func TestNewSession(t *testing.T) {
	s := newSession("p1", "alice")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "p1", s.PlayerID)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "telnet", s.Transport)
	assert.False(t, s.ConnectedAt.IsZero())

	assert.True(t, s.Send("hi"))
	assert.Equal(t, []string{"hi"}, s.Sink().Drain())
	s.Close()
	assert.False(t, s.Send("gone"))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry(&fakeRooms{}, nil)
	s := newSession("p1", "alice")
	assert.Nil(t, r.Register(s))

	got, ok := r.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Count())

	_, ok = r.Lookup("p2")
	assert.False(t, ok)
}

func TestRegistry_RegisterEvictsPrevious(t *testing.T) {
	c := &counter{}
	r := NewRegistry(&fakeRooms{}, c)
	first := newSession("p1", "alice")
	second := newSession("p1", "alice")

	assert.Nil(t, r.Register(first))
	assert.Same(t, first, r.Register(second))
	assert.Equal(t, 1, r.Count(), "one session per player")
	got, _ := r.Lookup("p1")
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.open)
}

func TestRegistry_DeregisterIdempotent(t *testing.T) {
	c := &counter{}
	r := NewRegistry(&fakeRooms{}, c)
	r.Register(newSession("p1", "alice"))

	assert.True(t, r.Deregister("p1"))
	assert.False(t, r.Deregister("p1"))
	assert.False(t, r.Deregister("never"))
	assert.Zero(t, r.Count())
	assert.Equal(t, 1, c.closed)
}

func TestRegistry_ReleaseOnlyOwnSession(t *testing.T) {
	r := NewRegistry(&fakeRooms{}, nil)
	first := newSession("p1", "alice")
	second := newSession("p1", "alice")
	r.Register(first)
	r.Register(second)

	assert.False(t, r.Release(first), "displaced session must not remove its successor")
	got, ok := r.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, r.Release(second))
	assert.Zero(t, r.Count())
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(&fakeRooms{}, nil)
	r.Register(newSession("p3", "zed"))
	r.Register(newSession("p1", "amy"))
	r.Register(newSession("p2", "bob"))

	var names []string
	for _, s := range r.List() {
		names = append(names, s.Username)
	}
	assert.Equal(t, []string{"amy", "bob", "zed"}, names)
}

func TestRegistry_ListInRoomIncludesOffline(t *testing.T) {
	rooms := &fakeRooms{byRoom: map[string][]*player.Player{
		"hall": {{ID: "p1", Username: "amy"}, {ID: "p2", Username: "bob"}, {ID: "p3", Username: "cat"}},
	}}
	r := NewRegistry(rooms, nil)
	r.Register(newSession("p1", "amy"))

	got, err := r.ListInRoom(context.Background(), "hall")
	require.NoError(t, err)
	require.Len(t, got, 3, "room membership is a storage property")
	assert.Equal(t, "bob", got[1].Username)
}

func TestRegistry_OnlineInRoomFiltersOffline(t *testing.T) {
	rooms := &fakeRooms{byRoom: map[string][]*player.Player{
		"hall": {{ID: "p1", Username: "amy"}, {ID: "p2", Username: "bob"}, {ID: "p3", Username: "cat"}},
	}}
	r := NewRegistry(rooms, nil)
	amy, cat := newSession("p1", "amy"), newSession("p3", "cat")
	r.Register(amy)
	r.Register(cat)

	got, err := r.OnlineInRoom(context.Background(), "hall")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, amy, got[0])
	assert.Same(t, cat, got[1])

	online := r.Online(rooms.byRoom["hall"])
	require.Len(t, online, 2)
	assert.Equal(t, "p3", online[1].ID)
}

func TestRegistry_ListInRoomStorageError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(&fakeRooms{err: boom}, nil)
	_, err := r.ListInRoom(context.Background(), "hall")
	assert.ErrorIs(t, err, boom)
	_, err = r.OnlineInRoom(context.Background(), "hall")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(&fakeRooms{}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newSession(fmt.Sprintf("p%d", i), fmt.Sprintf("user%d", i))
			r.Register(s)
			_, _ = r.Lookup(s.PlayerID)
			_ = r.List()
			_ = r.Count()
			r.Release(s)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Count())
}

// Property: after any sequence of register/deregister operations the count
// equals the number of distinct player ids still registered.
func TestPropertyRegistryOneSessionPerPlayer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry(&fakeRooms{}, nil)
		live := map[string]bool{}
		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := fmt.Sprintf("p%d", rapid.IntRange(0, 5).Draw(t, "id"))
			if rapid.Bool().Draw(t, "register") {
				r.Register(newSession(id, id))
				live[id] = true
			} else {
				removed := r.Deregister(id)
				if removed != live[id] {
					t.Fatalf("Deregister(%s) = %v, want %v", id, removed, live[id])
				}
				delete(live, id)
			}
			if r.Count() != len(live) {
				t.Fatalf("count %d, want %d", r.Count(), len(live))
			}
		}
	})
}
