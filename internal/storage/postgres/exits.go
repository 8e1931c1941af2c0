package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/world"
)

func upsertExit(ctx context.Context, q querier, roomID string, direction world.Direction, destinationID string) error {
	if err := requireRoom(ctx, q, roomID); err != nil {
		return err
	}
	if err := requireRoom(ctx, q, destinationID); err != nil {
		return err
	}
	dir := direction.Normalize()
	if dir == "" {
		return fmt.Errorf("exit from %q: empty direction", roomID)
	}
	_, err := q.Exec(ctx,
		`INSERT INTO room_exits (room_id, direction, destination_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (room_id, direction) DO UPDATE SET destination_id = EXCLUDED.destination_id`,
		roomID, string(dir), destinationID)
	if err != nil {
		return fmt.Errorf("saving exit %q from %q: %w", dir, roomID, err)
	}
	return nil
}

// AddExit implements world.ObjectStore.
func (s *Store) AddExit(ctx context.Context, roomID string, direction world.Direction, destinationID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return upsertExit(ctx, tx, roomID, direction, destinationID)
	})
}

// GetExit implements world.ObjectStore.
func (s *Store) GetExit(ctx context.Context, roomID string, direction world.Direction) (*world.Exit, error) {
	dir := direction.Normalize()
	e := world.Exit{RoomID: roomID, Direction: dir}
	err := s.pool.QueryRow(ctx,
		`SELECT destination_id FROM room_exits WHERE room_id = $1 AND direction = $2`,
		roomID, string(dir)).Scan(&e.DestinationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("exit %q from %q: %w", dir, roomID, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying exit %q from %q: %w", dir, roomID, err)
	}
	return &e, nil
}

// GetExits implements world.ObjectStore.
func (s *Store) GetExits(ctx context.Context, roomID string) ([]world.Exit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT direction, destination_id FROM room_exits WHERE room_id = $1 ORDER BY direction`, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying exits of %q: %w", roomID, err)
	}
	exits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (world.Exit, error) {
		e := world.Exit{RoomID: roomID}
		var dir string
		err := row.Scan(&dir, &e.DestinationID)
		e.Direction = world.Direction(dir)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning exits of %q: %w", roomID, err)
	}
	return exits, nil
}

// DigRoom implements world.ObjectStore in a single transaction.
func (s *Store) DigRoom(ctx context.Context, fromRoomID string, direction world.Direction, room *world.Object, back world.Direction) error {
	if room == nil || !room.IsRoom() {
		return fmt.Errorf("dig: %w", world.ErrInvalidObject)
	}
	if err := world.ValidateObject(room); err != nil {
		return err
	}
	if direction.Normalize() == "" || back.Normalize() == "" {
		return fmt.Errorf("dig from %q: empty direction", fromRoomID)
	}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := requireRoom(ctx, tx, fromRoomID); err != nil {
			return err
		}
		if err := insertObject(ctx, tx, room); err != nil {
			return err
		}
		if err := upsertExit(ctx, tx, fromRoomID, direction, room.ID); err != nil {
			return err
		}
		return upsertExit(ctx, tx, room.ID, back, fromRoomID)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("room dug", zap.String("from", fromRoomID), zap.String("room", room.ID))
	return nil
}
