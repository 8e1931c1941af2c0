package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/mudcore/internal/game/world"
)

const objectColumns = `id, name, description, kind, container_id, properties, created_at`

func scanObject(row pgx.Row) (*world.Object, error) {
	var (
		o         world.Object
		kind      string
		container *string
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Description, &kind, &container, &o.Properties, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Kind = world.Kind(kind)
	if container != nil {
		o.ContainerID = *container
	}
	if o.Properties == nil {
		o.Properties = map[string]any{}
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func properties(o *world.Object) map[string]any {
	if o.Properties == nil {
		return map[string]any{}
	}
	return o.Properties
}

// requireRoom distinguishes a missing id from an id that is not a room.
func requireRoom(ctx context.Context, q querier, id string) error {
	var kind string
	err := q.QueryRow(ctx, `SELECT kind FROM game_objects WHERE id = $1`, id).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("room %q: %w", id, world.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading room %q: %w", id, err)
	}
	if world.Kind(kind) != world.KindRoom {
		return fmt.Errorf("object %q: %w", id, world.ErrNotRoom)
	}
	return nil
}

func containerExists(ctx context.Context, q querier, id string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_objects WHERE id = $1)
		     OR EXISTS (SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking container %q: %w", id, err)
	}
	return exists, nil
}

func checkContainer(ctx context.Context, q querier, o *world.Object) error {
	if o.ContainerID == "" {
		return nil
	}
	ok, err := containerExists(ctx, q, o.ContainerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("container %q: %w", o.ContainerID, world.ErrNotFound)
	}
	return nil
}

func insertObject(ctx context.Context, q querier, o *world.Object) error {
	err := q.QueryRow(ctx,
		`INSERT INTO game_objects (id, name, description, kind, container_id, properties)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		o.ID, o.Name, o.Description, string(o.Kind), nullable(o.ContainerID), properties(o),
	).Scan(&o.CreatedAt)
	if isUniqueViolation(err, "game_objects_pkey") {
		return fmt.Errorf("object id %q already exists", o.ID)
	}
	if err != nil {
		return fmt.Errorf("inserting object %q: %w", o.ID, err)
	}
	return nil
}

// CreateObject implements world.ObjectStore.
func (s *Store) CreateObject(ctx context.Context, o *world.Object) error {
	if err := world.ValidateObject(o); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := checkContainer(ctx, tx, o); err != nil {
			return err
		}
		return insertObject(ctx, tx, o)
	})
}

// EnsureObject implements world.ObjectStore.
func (s *Store) EnsureObject(ctx context.Context, o *world.Object) (bool, error) {
	if err := world.ValidateObject(o); err != nil {
		return false, err
	}
	created := false
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := checkContainer(ctx, tx, o); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO game_objects (id, name, description, kind, container_id, properties)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING
			 RETURNING created_at`,
			o.ID, o.Name, o.Description, string(o.Kind), nullable(o.ContainerID), properties(o),
		).Scan(&o.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ensuring object %q: %w", o.ID, err)
		}
		created = true
		return nil
	})
	return created, err
}

// GetObject implements world.ObjectStore.
func (s *Store) GetObject(ctx context.Context, id string) (*world.Object, error) {
	o, err := scanObject(s.pool.QueryRow(ctx,
		`SELECT `+objectColumns+` FROM game_objects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying object %q: %w", id, err)
	}
	return o, nil
}

// GetRoom implements world.ObjectStore.
func (s *Store) GetRoom(ctx context.Context, id string) (*world.Object, error) {
	o, err := s.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsRoom() {
		return nil, fmt.Errorf("object %q: %w", id, world.ErrNotRoom)
	}
	return o, nil
}

// GetObjectsInContainer implements world.ObjectStore.
func (s *Store) GetObjectsInContainer(ctx context.Context, containerID string) ([]*world.Object, error) {
	if containerID == "" {
		return []*world.Object{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+objectColumns+` FROM game_objects WHERE container_id = $1 ORDER BY seq`, containerID)
	if err != nil {
		return nil, fmt.Errorf("querying contents of %q: %w", containerID, err)
	}
	objs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*world.Object, error) {
		return scanObject(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning contents of %q: %w", containerID, err)
	}
	return objs, nil
}

// UpdateObjectDescription implements world.ObjectStore.
func (s *Store) UpdateObjectDescription(ctx context.Context, id, description string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE game_objects SET description = $2 WHERE id = $1`, id, description)
	if err != nil {
		return fmt.Errorf("updating description of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
	}
	return nil
}

// MoveObject implements world.ObjectStore.
func (s *Store) MoveObject(ctx context.Context, id, containerID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var kind string
		err := tx.QueryRow(ctx, `SELECT kind FROM game_objects WHERE id = $1 FOR UPDATE`, id).Scan(&kind)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading object %q: %w", id, err)
		}
		if world.Kind(kind) == world.KindRoom {
			return fmt.Errorf("object %q: rooms cannot be contained: %w", id, world.ErrInvalidObject)
		}
		ok, err := containerExists(ctx, tx, containerID)
		if err != nil {
			return err
		}
		if !ok || containerID == id {
			return fmt.Errorf("container %q: %w", containerID, world.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `UPDATE game_objects SET container_id = $2 WHERE id = $1`, id, containerID); err != nil {
			return fmt.Errorf("moving object %q: %w", id, err)
		}
		return nil
	})
}

// DeleteObject implements world.ObjectStore. Exits touching the object go
// with it by cascade; objects it held are released.
func (s *Store) DeleteObject(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM game_objects WHERE id = $1`, id)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("object %q is occupied: %w", id, world.ErrInvalidObject)
		}
		if err != nil {
			return fmt.Errorf("deleting object %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("object %q: %w", id, world.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `UPDATE game_objects SET container_id = NULL WHERE container_id = $1`, id); err != nil {
			return fmt.Errorf("releasing contents of %q: %w", id, err)
		}
		return nil
	})
}
