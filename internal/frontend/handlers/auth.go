package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

// Handshake text.
const (
	msgServerFull    = "Server full. Try again later.\n"
	msgBanner        = "Welcome to the MUD!\n"
	msgChooseMode    = "Login (L) or Register (R)? "
	msgInvalidChoice = "Invalid choice.\n"
	msgUsername      = "Username: "
	msgPassword      = "Password: "
	msgBadLogin      = "Error: Invalid credentials\n"
	msgNameTaken     = "Error: Username already taken.\n"
	msgRegFailed     = "Error: Registration failed.\n"
	msgRegistered    = "Registration successful!\n"
)

// AccountStore is the player persistence the handshake needs.
// world.Store satisfies it.
type AccountStore interface {
	GetPlayerByUsername(ctx context.Context, username string) (*player.Player, error)
	CreatePlayer(ctx context.Context, p *player.Player) error
}

// Credentials hashes and checks passwords. *auth.Hasher satisfies it.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type mode int

const (
	modeLogin mode = iota
	modeRegister
)

// chooseMode writes the banner and reads the L/R answer.
func (h *Handler) chooseMode(conn LineConn) (mode, error) {
	if err := conn.WriteText(msgBanner + msgChooseMode); err != nil {
		return 0, fmt.Errorf("writing banner: %w", err)
	}
	line, err := conn.ReadLine()
	if err != nil {
		return 0, fmt.Errorf("reading mode: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case "L":
		return modeLogin, nil
	case "R":
		return modeRegister, nil
	}
	_ = conn.WriteText(msgInvalidChoice)
	return 0, fmt.Errorf("%q: %w", line, ErrInvalidChoice)
}

// readCredentials prompts for a username and a hidden password.
func readCredentials(conn LineConn) (string, string, error) {
	if err := conn.WriteText(msgUsername); err != nil {
		return "", "", fmt.Errorf("writing prompt: %w", err)
	}
	username, err := conn.ReadLine()
	if err != nil {
		return "", "", fmt.Errorf("reading username: %w", err)
	}
	if err := conn.WriteText(msgPassword); err != nil {
		return "", "", fmt.Errorf("writing prompt: %w", err)
	}
	password, err := conn.ReadPassword()
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(username), password, nil
}

// login authenticates an existing player. Unknown users and wrong passwords
// produce the same reply.
//
// Postcondition: Returns the stored player, or an error wrapping
// ErrAuthFailed after the failure has been written to conn.
func (h *Handler) login(ctx context.Context, conn LineConn) (*player.Player, error) {
	username, password, err := readCredentials(conn)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p, err := h.accounts.GetPlayerByUsername(ctx, username)
	switch {
	case err == nil && h.credentials.Verify(password, p.PasswordHash):
		h.logger.Info("player logged in",
			zap.String("username", p.Username),
			zap.String("transport", conn.Transport()),
			zap.Duration("elapsed", time.Since(start)),
		)
		return p, nil
	case err != nil && !errors.Is(err, world.ErrNotFound):
		h.logger.Error("loading player for login", zap.String("username", username), zap.Error(err))
	default:
		h.logger.Info("login rejected", zap.String("username", username))
	}
	h.recorder.ConnectionRejected("auth")
	_ = conn.WriteText(msgBadLogin)
	return nil, fmt.Errorf("login %q: %w", username, ErrAuthFailed)
}

// register creates a player with rolled attributes in the start room.
//
// Postcondition: Returns the persisted player, or an error after the failure
// has been written to conn.
func (h *Handler) register(ctx context.Context, conn LineConn) (*player.Player, error) {
	username, password, err := readCredentials(conn)
	if err != nil {
		return nil, err
	}

	fail := func(msg string, cause error) (*player.Player, error) {
		h.recorder.ConnectionRejected("registration")
		_ = conn.WriteText(msg)
		return nil, fmt.Errorf("register %q: %w", username, errors.Join(ErrRegistrationFailed, cause))
	}

	if err := player.ValidateUsername(username); err != nil {
		return fail("Error: "+sentence(err)+"\n", err)
	}
	if err := player.ValidatePassword(password); err != nil {
		return fail("Error: "+sentence(err)+"\n", err)
	}

	start := time.Now()
	hash, err := h.credentials.Hash(password)
	if err != nil {
		h.logger.Error("hashing password", zap.Error(err))
		return fail(msgRegFailed, err)
	}
	p, err := player.New(username, hash, h.cfg.StartRoom, h.roller)
	if err != nil {
		return fail(msgRegFailed, err)
	}
	if err := h.accounts.CreatePlayer(ctx, p); err != nil {
		if errors.Is(err, world.ErrUsernameTaken) {
			return fail(msgNameTaken, err)
		}
		h.logger.Error("storing new player", zap.String("username", username), zap.Error(err))
		return fail(msgRegFailed, err)
	}

	h.logger.Info("player registered",
		zap.String("username", p.Username),
		zap.String("player_id", p.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err := conn.WriteText(msgRegistered); err != nil {
		return nil, fmt.Errorf("writing registration result: %w", err)
	}
	return p, nil
}

// sentence capitalises an error message and ends it with a period.
func sentence(err error) string {
	s := err.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
