package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/mudcore/internal/game/world"
)

const objectColumns = `id, name, description, kind, container_id, properties, created_at`

func scanObject(row scanner) (*world.Object, error) {
	var (
		o         world.Object
		kind      string
		container sql.NullString
		props     string
		created   int64
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Description, &kind, &container, &props, &created); err != nil {
		return nil, err
	}
	o.Kind = world.Kind(kind)
	o.ContainerID = container.String
	o.CreatedAt = time.Unix(0, created).UTC()
	o.Properties = map[string]any{}
	if err := json.Unmarshal([]byte(props), &o.Properties); err != nil {
		return nil, fmt.Errorf("decoding properties of %q: %w", o.ID, err)
	}
	return &o, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeProperties(o *world.Object) (string, error) {
	if len(o.Properties) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(o.Properties)
	if err != nil {
		return "", fmt.Errorf("encoding properties of %q: %w", o.ID, err)
	}
	return string(b), nil
}

func requireRoom(ctx context.Context, q querier, id string) error {
	var kind string
	err := q.QueryRowContext(ctx, `SELECT kind FROM game_objects WHERE id = ?`, id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
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
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_objects WHERE id = ?1)
		     OR EXISTS (SELECT 1 FROM players WHERE id = ?1)`, id).Scan(&exists)
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

// insertObject writes o. With ignoreExisting an id collision is reported as
// (false, nil) instead of an error.
func (s *Store) insertObject(ctx context.Context, q querier, o *world.Object, ignoreExisting bool) (bool, error) {
	props, err := encodeProperties(o)
	if err != nil {
		return false, err
	}
	created, stamp := s.stamp()
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	res, err := q.ExecContext(ctx,
		verb+` INTO game_objects (`+objectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Description, string(o.Kind), nullable(o.ContainerID), props, stamp)
	if isUniqueViolation(err, "game_objects.id") {
		return false, fmt.Errorf("object id %q already exists", o.ID)
	}
	if err != nil {
		return false, fmt.Errorf("inserting object %q: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting object %q: %w", o.ID, err)
	}
	if n == 0 {
		return false, nil
	}
	o.CreatedAt = created
	return true, nil
}

// CreateObject implements world.ObjectStore.
func (s *Store) CreateObject(ctx context.Context, o *world.Object) error {
	if err := world.ValidateObject(o); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkContainer(ctx, tx, o); err != nil {
			return err
		}
		_, err := s.insertObject(ctx, tx, o, false)
		return err
	})
}

// EnsureObject implements world.ObjectStore.
func (s *Store) EnsureObject(ctx context.Context, o *world.Object) (bool, error) {
	if err := world.ValidateObject(o); err != nil {
		return false, err
	}
	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkContainer(ctx, tx, o); err != nil {
			return err
		}
		var err error
		created, err = s.insertObject(ctx, tx, o, true)
		return err
	})
	return created, err
}

// GetObject implements world.ObjectStore.
func (s *Store) GetObject(ctx context.Context, id string) (*world.Object, error) {
	o, err := scanObject(s.db.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM game_objects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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

// GetObjectsInContainer implements world.ObjectStore. Rows come back in
// insertion (rowid) order.
func (s *Store) GetObjectsInContainer(ctx context.Context, containerID string) ([]*world.Object, error) {
	out := []*world.Object{}
	if containerID == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM game_objects WHERE container_id = ? ORDER BY rowid`, containerID)
	if err != nil {
		return nil, fmt.Errorf("querying contents of %q: %w", containerID, err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contents of %q: %w", containerID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateObjectDescription implements world.ObjectStore.
func (s *Store) UpdateObjectDescription(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE game_objects SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("updating description of %q: %w", id, err)
	}
	return requireAffected(res, "object", id)
}

// MoveObject implements world.ObjectStore.
func (s *Store) MoveObject(ctx context.Context, id, containerID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var kind string
		err := tx.QueryRowContext(ctx, `SELECT kind FROM game_objects WHERE id = ?`, id).Scan(&kind)
		if errors.Is(err, sql.ErrNoRows) {
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
		if _, err := tx.ExecContext(ctx, `UPDATE game_objects SET container_id = ? WHERE id = ?`, containerID, id); err != nil {
			return fmt.Errorf("moving object %q: %w", id, err)
		}
		return nil
	})
}

// DeleteObject implements world.ObjectStore. Exits touching the object go
// with it by cascade; objects it held are released.
func (s *Store) DeleteObject(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM game_objects WHERE id = ?`, id)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("object %q is occupied: %w", id, world.ErrInvalidObject)
		}
		if err != nil {
			return fmt.Errorf("deleting object %q: %w", id, err)
		}
		if err := requireAffected(res, "object", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE game_objects SET container_id = NULL WHERE container_id = ?`, id); err != nil {
			return fmt.Errorf("releasing contents of %q: %w", id, err)
		}
		return nil
	})
}
