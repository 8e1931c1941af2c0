package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

const playerColumns = `id, username, password_hash, room_id, is_admin,
	dexterity, strength, vitality, perception, willpower, charisma,
	health, stamina, initiative, physical_defense, mystical_defense,
	physical_armor, mystical_armor, created_at`

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	err := row.Scan(
		&p.ID, &p.Username, &p.PasswordHash, &p.RoomID, &p.IsAdmin,
		&p.Attributes.Dexterity, &p.Attributes.Strength, &p.Attributes.Vitality,
		&p.Attributes.Perception, &p.Attributes.Willpower, &p.Attributes.Charisma,
		&p.Stats.Health, &p.Stats.Stamina, &p.Stats.Initiative,
		&p.Stats.PhysicalDefense, &p.Stats.MysticalDefense,
		&p.Stats.PhysicalArmor, &p.Stats.MysticalArmor, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlayer implements world.PlayerStore.
//
// Postcondition: p.CreatedAt is set on success; ErrUsernameTaken leaves no row.
func (s *Store) CreatePlayer(ctx context.Context, p *player.Player) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := requireRoom(ctx, tx, p.RoomID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO players (`+playerColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			         $12, $13, $14, $15, $16, $17, $18, NOW())
			 RETURNING created_at`,
			p.ID, p.Username, p.PasswordHash, p.RoomID, p.IsAdmin,
			p.Attributes.Dexterity, p.Attributes.Strength, p.Attributes.Vitality,
			p.Attributes.Perception, p.Attributes.Willpower, p.Attributes.Charisma,
			p.Stats.Health, p.Stats.Stamina, p.Stats.Initiative,
			p.Stats.PhysicalDefense, p.Stats.MysticalDefense,
			p.Stats.PhysicalArmor, p.Stats.MysticalArmor,
		).Scan(&p.CreatedAt)
		if isUniqueViolation(err, "players_username_key") {
			return fmt.Errorf("player %q: %w", p.Username, world.ErrUsernameTaken)
		}
		if err != nil {
			return fmt.Errorf("inserting player %q: %w", p.Username, err)
		}
		return nil
	})
}

// GetPlayerByUsername implements world.PlayerStore.
func (s *Store) GetPlayerByUsername(ctx context.Context, username string) (*player.Player, error) {
	p, err := scanPlayer(s.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", username, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player %q: %w", username, err)
	}
	return p, nil
}

// GetPlayerByID implements world.PlayerStore.
func (s *Store) GetPlayerByID(ctx context.Context, id string) (*player.Player, error) {
	p, err := scanPlayer(s.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %q: %w", id, world.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player %q: %w", id, err)
	}
	return p, nil
}

// GetPlayersInRoom implements world.PlayerStore.
func (s *Store) GetPlayersInRoom(ctx context.Context, roomID string) ([]*player.Player, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE room_id = $1 ORDER BY username`, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying players in %q: %w", roomID, err)
	}
	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*player.Player, error) {
		return scanPlayer(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning players in %q: %w", roomID, err)
	}
	return players, nil
}

// UpdatePlayerLocation implements world.PlayerStore.
func (s *Store) UpdatePlayerLocation(ctx context.Context, playerID, roomID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := requireRoom(ctx, tx, roomID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE players SET room_id = $2 WHERE id = $1`, playerID, roomID)
		if err != nil {
			return fmt.Errorf("moving player %q: %w", playerID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("player %q: %w", playerID, world.ErrNotFound)
		}
		return nil
	})
}

// SetPlayerAdmin implements world.PlayerStore.
func (s *Store) SetPlayerAdmin(ctx context.Context, playerID string, admin bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE players SET is_admin = $2 WHERE id = $1`, playerID, admin)
	if err != nil {
		return fmt.Errorf("setting admin for %q: %w", playerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player %q: %w", playerID, world.ErrNotFound)
	}
	return nil
}
