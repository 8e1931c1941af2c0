package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcore/internal/game/world"
	"github.com/cory-johannsen/mudcore/internal/storage/memory"
	"github.com/cory-johannsen/mudcore/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) world.Store { return memory.New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	room := world.NewRoom("Room", "Plain.")
	require.NoError(t, s.CreateObject(ctx, room))

	got, err := s.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	got.Description = "mutated"
	got.Properties["k"] = "v"

	again, err := s.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plain.", again.Description)
	assert.NotContains(t, again.Properties, "k")
}

func TestStore_ConcurrentCreates(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	room := world.NewRoom("Room", "")
	require.NoError(t, s.CreateObject(ctx, room))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.CreateObject(ctx, world.NewItem("pebble", "", room.ID)))
		}()
	}
	wg.Wait()

	held, err := s.GetObjectsInContainer(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, held, 50)
}
