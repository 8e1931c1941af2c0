package command

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcore/internal/game/bus"
	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/session"
	"github.com/cory-johannsen/mudcore/internal/game/world"
	"github.com/cory-johannsen/mudcore/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	svc      *world.Service
	registry *session.Registry
	bus      *bus.Bus
	d        *Dispatcher
}

type online struct {
	player  *player.Player
	session *session.Session
}

func newFixtureWithStore(t *testing.T, store world.Store, mem *memory.Store) *fixture {
	t.Helper()
	start := world.NewRoom(world.StartRoomName, world.StartRoomDescription)
	start.ID = "room_start"
	require.NoError(t, mem.CreateObject(context.Background(), start))

	logger := zaptest.NewLogger(t)
	svc := world.NewService(store, "room_start", logger)
	registry := session.NewRegistry(store, nil)
	b := bus.New(bus.DefaultCapacity, nil, logger)
	d, err := NewDispatcher(DefaultRegistry(), svc, registry, b, nil, logger)
	require.NoError(t, err)
	return &fixture{store: mem, svc: svc, registry: registry, bus: b, d: d}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	return newFixtureWithStore(t, mem, mem)
}

// addPlayer stores a player in room_start without bringing them online.
func (f *fixture) addPlayer(t *testing.T, username string, admin bool) *player.Player {
	t.Helper()
	p := &player.Player{
		ID:           username + "-id",
		Username:     username,
		PasswordHash: "hash",
		RoomID:       "room_start",
		IsAdmin:      admin,
		Stats:        player.DefaultStats(),
	}
	require.NoError(t, f.store.CreatePlayer(context.Background(), p))
	return p
}

// connect stores a player and gives them a live, subscribed session.
func (f *fixture) connect(t *testing.T, username string, admin bool) online {
	t.Helper()
	p := f.addPlayer(t, username, admin)
	sess := session.New(p, f.bus.NewSink(), "test")
	f.registry.Register(sess)
	f.bus.Subscribe(sess.ID, sess.Sink())
	return online{player: p, session: sess}
}

func (f *fixture) run(t *testing.T, who online, line string) string {
	t.Helper()
	return f.d.Dispatch(context.Background(), who.player.ID, line).Text
}

func (f *fixture) room(t *testing.T, id string) *world.Object {
	t.Helper()
	r, err := f.store.GetRoom(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) location(t *testing.T, playerID string) string {
	t.Helper()
	p, err := f.store.GetPlayerByID(context.Background(), playerID)
	require.NoError(t, err)
	return p.RoomID
}

func TestDispatch_BlankLine(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	res := f.d.Dispatch(context.Background(), alice.player.ID, "   ")
	assert.Equal(t, Result{}, res)
	assert.Empty(t, alice.session.Sink().Drain())
}

func TestDispatch_Unknown(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	assert.Equal(t, MsgUnknown, f.run(t, alice, "dance wildly"))
}

func TestDispatch_Quit(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	res := f.d.Dispatch(context.Background(), alice.player.ID, "QUIT")
	assert.Equal(t, Result{Text: MsgGoodbye, Quit: true}, res)
}

func TestLook_EmptyRoom(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	want := world.StartRoomName + "\n" + world.StartRoomDescription + "\nExits: None\n\n"
	assert.Equal(t, want, f.run(t, alice, "look"))
}

func TestLook_FullRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.connect(t, "alice", false)
	f.connect(t, "bob", false)
	f.addPlayer(t, "carol", false) // offline

	_, err := f.svc.CreateItem(ctx, "room_start", "torch", "A torch.")
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, "room_start", "rope", "Some rope.")
	require.NoError(t, err)
	for _, dir := range []world.Direction{world.West, world.East} {
		r := world.NewRoom(string(dir), "")
		require.NoError(t, f.store.CreateObject(ctx, r))
		require.NoError(t, f.store.AddExit(ctx, "room_start", dir, r.ID))
	}

	want := world.StartRoomName + "\n" + world.StartRoomDescription + "\n" +
		"You see:\n  - torch\n  - rope\n" +
		"\nPlayers here:\n  - bob\n  - carol\n" +
		"Exits: east, west\n\n"
	assert.Equal(t, want, f.run(t, alice, "LOOK"), "stored occupants are listed whether or not they are online")
}

func TestMove_ThroughExitNotifiesBothRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := world.NewRoom("Hall", "A long hall.")
	require.NoError(t, f.store.CreateObject(ctx, hall))
	require.NoError(t, f.store.AddExit(ctx, "room_start", world.North, hall.ID))

	alice := f.connect(t, "alice", false)
	bob := f.connect(t, "bob", false)
	carol := f.connect(t, "carol", false)
	require.NoError(t, f.store.UpdatePlayerLocation(ctx, carol.player.ID, hall.ID))

	out := f.run(t, alice, "n")
	assert.True(t, strings.HasPrefix(out, "Hall\nA long hall.\n"), out)
	assert.Contains(t, out, "\nPlayers here:\n  - carol\n")
	assert.Equal(t, hall.ID, f.location(t, alice.player.ID))

	assert.Equal(t, []string{"alice leaves north.\n"}, bob.session.Sink().Drain())
	assert.Equal(t, []string{"alice arrives.\n"}, carol.session.Sink().Drain())
	assert.Empty(t, alice.session.Sink().Drain(), "mover gets no notice")
}

// countingBus records every room-scoped publish.
type countingBus struct {
	*bus.Bus
	scoped []string
}

func (c *countingBus) PublishWhere(text string, accept func(id string) bool) int {
	c.scoped = append(c.scoped, text)
	return c.Bus.PublishWhere(text, accept)
}

func TestMove_NoticesArePublishedOnceOnTheBus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cb := &countingBus{Bus: f.bus}
	d, err := NewDispatcher(DefaultRegistry(), f.svc, f.registry, cb, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	f.d = d

	hall := world.NewRoom("Hall", "A long hall.")
	cellar := world.NewRoom("Cellar", "Damp.")
	require.NoError(t, f.store.CreateObject(ctx, hall))
	require.NoError(t, f.store.CreateObject(ctx, cellar))
	require.NoError(t, f.store.AddExit(ctx, "room_start", world.North, hall.ID))

	alice := f.connect(t, "alice", false)
	bob := f.connect(t, "bob", false)
	dave := f.connect(t, "dave", false)
	require.NoError(t, f.store.UpdatePlayerLocation(ctx, dave.player.ID, cellar.ID))
	f.addPlayer(t, "erin", false) // offline, stays in room_start

	f.run(t, alice, "north")

	assert.Equal(t, []string{"alice leaves north.\n"}, cb.scoped, "the empty hall gets no publish")
	assert.Equal(t, []string{"alice leaves north.\n"}, bob.session.Sink().Drain())
	assert.Empty(t, dave.session.Sink().Drain(), "subscribers outside the room are filtered out")
	assert.Empty(t, alice.session.Sink().Drain())
}

func TestMove_MissingExit(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	bob := f.connect(t, "bob", false)

	assert.Equal(t, MsgNoExit, f.run(t, alice, "south"))
	assert.Equal(t, "room_start", f.location(t, alice.player.ID))
	assert.Empty(t, bob.session.Sink().Drain())
}

func TestMove_InventoryStaysWithPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hall := world.NewRoom("Hall", "")
	require.NoError(t, f.store.CreateObject(ctx, hall))
	require.NoError(t, f.store.AddExit(ctx, "room_start", world.Up, hall.ID))
	alice := f.connect(t, "alice", false)
	_, err := f.svc.CreateItem(ctx, alice.player.ID, "coin", "A coin.")
	require.NoError(t, err)

	f.run(t, alice, "up")
	assert.Equal(t, "Inventory:\n  - coin: A coin.\n", f.run(t, alice, "inv"))
}

func TestSay_BroadcastsToEveryoneIncludingSender(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	bob := f.connect(t, "bob", false)

	out := f.run(t, alice, "say hello")
	assert.Equal(t, "alice says: hello\n", out)
	assert.Equal(t, []string{"alice says: hello\n"}, alice.session.Sink().Drain())
	assert.Equal(t, []string{"alice says: hello\n"}, bob.session.Sink().Drain())
}

func TestSay_JoinsWords(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	assert.Equal(t, "alice says: hi there\n", f.run(t, alice, "say   hi   there"))
}

func TestSay_NoArgs(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	assert.Equal(t, MsgSayWhat, f.run(t, alice, "say"))
	assert.Empty(t, alice.session.Sink().Drain())
}

func TestInventory_Empty(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	assert.Equal(t, "Your inventory is empty.\n", f.run(t, alice, "inventory"))
}

func TestGetAndDrop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.connect(t, "alice", false)
	_, err := f.svc.CreateItem(ctx, "room_start", "Brass Lamp", "Shiny.")
	require.NoError(t, err)

	assert.Equal(t, "You don't see that here.\n", f.run(t, alice, "get sword"))
	assert.Equal(t, "You pick up Brass Lamp.\n", f.run(t, alice, "get brass lamp"))
	assert.Equal(t, "Inventory:\n  - Brass Lamp: Shiny.\n", f.run(t, alice, "inv"))

	assert.Equal(t, "You aren't carrying that.\n", f.run(t, alice, "drop sword"))
	assert.Equal(t, "You drop Brass Lamp.\n", f.run(t, alice, "drop Brass Lamp"))
	assert.Equal(t, "Your inventory is empty.\n", f.run(t, alice, "inv"))
	assert.Equal(t, "Usage: get <item>\n", f.run(t, alice, "get"))
}

func TestWho(t *testing.T) {
	f := newFixture(t)
	zed := f.connect(t, "zed", false)
	f.connect(t, "amy", false)
	f.addPlayer(t, "offline", false)
	assert.Equal(t, "Players online (2):\n  - amy\n  - zed\n", f.run(t, zed, "who"))
}

func TestHelp_AdminAware(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)
	root := f.connect(t, "root", true)
	assert.NotContains(t, f.run(t, alice, "help"), "@dig")
	assert.Contains(t, f.run(t, root, "help"), "@dig")
}

func TestDig_CreatesRoomAndReciprocalExit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.connect(t, "root", true)

	out := f.run(t, root, `@dig east "Hall" "A long hall."`)
	assert.Equal(t, "Room created! Exit 'east' added.\n", out)

	fwd, err := f.store.GetExit(ctx, "room_start", world.East)
	require.NoError(t, err)
	hall := f.room(t, fwd.DestinationID)
	assert.Equal(t, "Hall", hall.Name)
	assert.Equal(t, "A long hall.", hall.Description)

	back, err := f.store.GetExit(ctx, hall.ID, world.West)
	require.NoError(t, err)
	assert.Equal(t, "room_start", back.DestinationID)

	assert.Contains(t, f.run(t, root, "look"), "Exits: east\n")
}

func TestDig_UnquotedDescriptionAndAbbreviation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.connect(t, "root", true)

	assert.Equal(t, "Room created! Exit 'up' added.\n", f.run(t, root, "@dig u Attic dusty and dark"))
	fwd, err := f.store.GetExit(ctx, "room_start", world.Up)
	require.NoError(t, err)
	assert.Equal(t, "dusty and dark", f.room(t, fwd.DestinationID).Description)
	_, err = f.store.GetExit(ctx, fwd.DestinationID, world.Down)
	assert.NoError(t, err)
}

func TestDig_UnknownDirectionUsesEnterAndBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.connect(t, "root", true)

	assert.Equal(t, "Room created! Exit 'enter' added.\n", f.run(t, root, "@dig portal Void Nothing here."))
	fwd, err := f.store.GetExit(ctx, "room_start", world.Enter)
	require.NoError(t, err)
	back, err := f.store.GetExit(ctx, fwd.DestinationID, world.Back)
	require.NoError(t, err)
	assert.Equal(t, "room_start", back.DestinationID)
}

func TestDig_Usage(t *testing.T) {
	f := newFixture(t)
	root := f.connect(t, "root", true)
	assert.Equal(t, "Usage: @dig <direction> <room_name> <room_description>\n", f.run(t, root, "@dig east Hall"))
	exits, err := f.store.GetExits(context.Background(), "room_start")
	require.NoError(t, err)
	assert.Empty(t, exits)
}

func TestCreate_NonAdminDenied(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "alice", false)

	assert.Equal(t, MsgPermission, f.run(t, alice, "@create x y"))
	assert.Equal(t, MsgPermission, f.run(t, alice, "@create"), "permission precedes usage")
	held, err := f.store.GetObjectsInContainer(context.Background(), "room_start")
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestCreate_AdminFlagReadFromStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.connect(t, "alice", false)
	require.NoError(t, f.store.SetPlayerAdmin(ctx, alice.player.ID, true))

	assert.Equal(t, "Created 'lamp'.\n", f.run(t, alice, "@create lamp A brass lamp."))
	held, err := f.store.GetObjectsInContainer(ctx, "room_start")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "A brass lamp.", held[0].Description)
	assert.Equal(t, world.KindItem, held[0].Kind)
}

func TestCreate_Usage(t *testing.T) {
	f := newFixture(t)
	root := f.connect(t, "root", true)
	assert.Equal(t, "Usage: @create <item_name> <description>\n", f.run(t, root, "@create lamp"))
}

func TestDesc(t *testing.T) {
	f := newFixture(t)
	root := f.connect(t, "root", true)
	assert.Equal(t, "Usage: @desc <new description>\n", f.run(t, root, "@desc"))
	assert.Equal(t, "Room description updated.\n", f.run(t, root, `@desc "Cold stone walls."`))
	assert.Equal(t, "Cold stone walls.", f.room(t, "room_start").Description)
}

func TestDestroy(t *testing.T) {
	f := newFixture(t)
	root := f.connect(t, "root", true)
	f.run(t, root, `@create "old boot" Smelly.`)

	assert.Equal(t, "You don't see that here.\n", f.run(t, root, "@destroy sword"))
	assert.Equal(t, "Destroyed 'old boot'.\n", f.run(t, root, `@destroy "old boot"`))
	held, err := f.store.GetObjectsInContainer(context.Background(), "room_start")
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestDispatch_UnknownPlayer(t *testing.T) {
	f := newFixture(t)
	res := f.d.Dispatch(context.Background(), "ghost", "look")
	assert.Equal(t, MsgNotFound, res.Text)
}

type failingStore struct {
	*memory.Store
}

var errBoom = errors.New("disk on fire")

func (failingStore) GetObjectsInContainer(context.Context, string) ([]*world.Object, error) {
	return nil, errBoom
}

func TestDispatch_StorageErrorIsRecoverable(t *testing.T) {
	mem := memory.New()
	f := newFixtureWithStore(t, failingStore{mem}, mem)
	alice := f.connect(t, "alice", false)

	assert.Equal(t, MsgFailure, f.run(t, alice, "inventory"))
	assert.Equal(t, MsgFailure, f.run(t, alice, "look"))
	assert.Equal(t, "alice says: still here\n", f.run(t, alice, "say still here"))
}

type recorder struct {
	dispatched []string
	failed     []string
}

func (r *recorder) CommandDispatched(c string) { r.dispatched = append(r.dispatched, c) }
func (r *recorder) CommandFailed(c string)     { r.failed = append(r.failed, c) }

func TestDispatch_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	d, err := NewDispatcher(DefaultRegistry(), f.svc, f.registry, f.bus, rec, zaptest.NewLogger(t))
	require.NoError(t, err)
	alice := f.connect(t, "alice", false)

	ctx := context.Background()
	d.Dispatch(ctx, alice.player.ID, "n")
	d.Dispatch(ctx, alice.player.ID, "@dig x y z")
	d.Dispatch(ctx, alice.player.ID, "xyzzy")
	assert.Equal(t, []string{"north", "@dig", "unknown"}, rec.dispatched)
	assert.Equal(t, []string{"no_exit", "permission"}, rec.failed)
}

func TestNewDispatcher_MissingHandler(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry([]Command{{Name: "fly", Handler: "fly"}})
	require.NoError(t, err)
	_, err = NewDispatcher(reg, f.svc, f.registry, f.bus, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

// Property: every spelling of a direction word or abbreviation moves through
// the matching exit.
func TestPropertyDirectionTokensResolve(t *testing.T) {
	tokens := map[string]world.Direction{
		"north": world.North, "n": world.North,
		"south": world.South, "s": world.South,
		"east": world.East, "e": world.East,
		"west": world.West, "w": world.West,
		"up": world.Up, "u": world.Up,
		"down": world.Down, "d": world.Down,
	}
	var words []string
	for w := range tokens {
		words = append(words, w)
	}
	slices.Sort(words)

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		alice := f.connect(t, "alice", false)

		word := rapid.SampledFrom(words).Draw(rt, "word")
		var b strings.Builder
		for _, c := range word {
			if rapid.Bool().Draw(rt, "upper") {
				b.WriteString(strings.ToUpper(string(c)))
			} else {
				b.WriteRune(c)
			}
		}
		dir := tokens[word]
		dest := world.NewRoom("Dest", "")
		require.NoError(rt, f.store.CreateObject(ctx, dest))
		require.NoError(rt, f.store.AddExit(ctx, "room_start", dir, dest.ID))

		out := f.d.Dispatch(ctx, alice.player.ID, b.String()).Text
		if !strings.HasPrefix(out, "Dest\n") {
			rt.Fatalf("%q did not move %s: %q", b.String(), dir, out)
		}
		if got := f.location(t, alice.player.ID); got != dest.ID {
			rt.Fatalf("location %q, want %q", got, dest.ID)
		}
	})
}
