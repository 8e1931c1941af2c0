package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

const playerColumns = `id, username, password_hash, room_id, is_admin,
	dexterity, strength, vitality, perception, willpower, charisma,
	health, stamina, initiative, physical_defense, mystical_defense,
	physical_armor, mystical_armor, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (*player.Player, error) {
	var (
		p       player.Player
		created int64
	)
	err := row.Scan(
		&p.ID, &p.Username, &p.PasswordHash, &p.RoomID, &p.IsAdmin,
		&p.Attributes.Dexterity, &p.Attributes.Strength, &p.Attributes.Vitality,
		&p.Attributes.Perception, &p.Attributes.Willpower, &p.Attributes.Charisma,
		&p.Stats.Health, &p.Stats.Stamina, &p.Stats.Initiative,
		&p.Stats.PhysicalDefense, &p.Stats.MysticalDefense,
		&p.Stats.PhysicalArmor, &p.Stats.MysticalArmor, &created,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return &p, nil
}

// CreatePlayer implements world.PlayerStore.
func (s *Store) CreatePlayer(ctx context.Context, p *player.Player) error {
	created, stamp := s.stamp()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireRoom(ctx, tx, p.RoomID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO players (`+playerColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Username, p.PasswordHash, p.RoomID, p.IsAdmin,
			p.Attributes.Dexterity, p.Attributes.Strength, p.Attributes.Vitality,
			p.Attributes.Perception, p.Attributes.Willpower, p.Attributes.Charisma,
			p.Stats.Health, p.Stats.Stamina, p.Stats.Initiative,
			p.Stats.PhysicalDefense, p.Stats.MysticalDefense,
			p.Stats.PhysicalArmor, p.Stats.MysticalArmor, stamp,
		)
		if isUniqueViolation(err, "players.username") {
			return fmt.Errorf("player %q: %w", p.Username, world.ErrUsernameTaken)
		}
		if err != nil {
			return fmt.Errorf("inserting player %q: %w", p.Username, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.CreatedAt = created
	return nil
}

func (s *Store) getPlayer(ctx context.Context, column, value string) (*player.Player, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", value, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player %q: %w", value, err)
	}
	return p, nil
}

// GetPlayerByUsername implements world.PlayerStore.
func (s *Store) GetPlayerByUsername(ctx context.Context, username string) (*player.Player, error) {
	return s.getPlayer(ctx, "username", username)
}

// GetPlayerByID implements world.PlayerStore.
func (s *Store) GetPlayerByID(ctx context.Context, id string) (*player.Player, error) {
	return s.getPlayer(ctx, "id", id)
}

// GetPlayersInRoom implements world.PlayerStore.
func (s *Store) GetPlayersInRoom(ctx context.Context, roomID string) ([]*player.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE room_id = ? ORDER BY username`, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying players in %q: %w", roomID, err)
	}
	defer rows.Close()

	var out []*player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning players in %q: %w", roomID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlayerLocation implements world.PlayerStore.
func (s *Store) UpdatePlayerLocation(ctx context.Context, playerID, roomID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireRoom(ctx, tx, roomID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE players SET room_id = ? WHERE id = ?`, roomID, playerID)
		if err != nil {
			return fmt.Errorf("moving player %q: %w", playerID, err)
		}
		return requireAffected(res, "player", playerID)
	})
}

// SetPlayerAdmin implements world.PlayerStore.
func (s *Store) SetPlayerAdmin(ctx context.Context, playerID string, admin bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET is_admin = ? WHERE id = ?`, admin, playerID)
	if err != nil {
		return fmt.Errorf("setting admin for %q: %w", playerID, err)
	}
	return requireAffected(res, "player", playerID)
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of %s %q: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", what, id, world.ErrNotFound)
	}
	return nil
}
