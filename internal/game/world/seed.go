package world

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/player"
)

// Default content of the starting room.
const (
	StartRoomName        = "Starting Room"
	StartRoomDescription = "A simple room with stone walls. The beginning of your adventure."
)

// Hasher hashes a plaintext credential for storage.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedOptions configures Seed.
type SeedOptions struct {
	// StartRoom is the id of the room that must exist before any player.
	StartRoom string
	// AdminUsername, when non-empty, names an admin account to ensure.
	AdminUsername string
	// AdminPassword is hashed for a newly created admin account.
	AdminPassword string
	// World is optional static content.
	World *SeedWorld
}

// Seed brings the store to its bootstrap state. Every step is idempotent:
// existing rooms, items, and accounts are left untouched, and exits are upserted.
//
// Precondition: store, hasher, roller, and logger must be non-nil.
// Postcondition: the start room exists; the admin account exists and is an
// admin when AdminUsername is set.
func Seed(ctx context.Context, store Store, hasher Hasher, roller player.AttributeRoller, opts SeedOptions, logger *zap.Logger) error {
	if opts.StartRoom == "" {
		return errors.New("seed: start room id must not be empty")
	}

	var rooms, items []*Object
	var exits []Exit
	if opts.World != nil {
		rooms, items, exits = opts.World.Rooms, opts.World.Items, opts.World.Exits
	}

	hasStart := false
	for _, r := range rooms {
		if r.ID == opts.StartRoom {
			hasStart = true
			break
		}
	}
	if !hasStart {
		rooms = append([]*Object{{
			ID:          opts.StartRoom,
			Name:        StartRoomName,
			Description: StartRoomDescription,
			Kind:        KindRoom,
			Properties:  map[string]any{},
		}}, rooms...)
	}

	created := 0
	for _, o := range append(append([]*Object{}, rooms...), items...) {
		ok, err := store.EnsureObject(ctx, o)
		if err != nil {
			return fmt.Errorf("seed: ensuring %s %q: %w", o.Kind, o.ID, err)
		}
		if ok {
			created++
		}
	}
	for _, e := range exits {
		if err := store.AddExit(ctx, e.RoomID, e.Direction, e.DestinationID); err != nil {
			return fmt.Errorf("seed: exit %q from %q: %w", e.Direction, e.RoomID, err)
		}
	}
	logger.Info("world seeded",
		zap.String("start_room", opts.StartRoom),
		zap.Int("objects_created", created),
		zap.Int("exits", len(exits)),
	)

	if opts.AdminUsername == "" {
		return nil
	}
	return ensureAdmin(ctx, store, hasher, roller, opts, logger)
}

func ensureAdmin(ctx context.Context, store Store, hasher Hasher, roller player.AttributeRoller, opts SeedOptions, logger *zap.Logger) error {
	existing, err := store.GetPlayerByUsername(ctx, opts.AdminUsername)
	switch {
	case err == nil:
		if !existing.IsAdmin {
			if err := store.SetPlayerAdmin(ctx, existing.ID, true); err != nil {
				return fmt.Errorf("seed: promoting %q: %w", opts.AdminUsername, err)
			}
			logger.Info("admin account promoted", zap.String("username", opts.AdminUsername))
		}
		return nil
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("seed: looking up %q: %w", opts.AdminUsername, err)
	}

	hash, err := hasher.Hash(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed: hashing admin credential: %w", err)
	}
	admin, err := player.New(opts.AdminUsername, hash, opts.StartRoom, roller)
	if err != nil {
		return fmt.Errorf("seed: building admin: %w", err)
	}
	admin.IsAdmin = true
	if err := store.CreatePlayer(ctx, admin); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			// Another process seeded it between lookup and insert.
			return nil
		}
		return fmt.Errorf("seed: creating admin: %w", err)
	}
	logger.Info("admin account created", zap.String("username", opts.AdminUsername))
	return nil
}
