package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/bus"
	"github.com/cory-johannsen/mudcore/internal/game/command"
	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/session"
)

const (
	msgEvicted  = "You have been logged in from another location. Goodbye.\n"
	msgShutdown = "Server shutting down. Goodbye!\n"
	msgIdle     = "Disconnected for inactivity.\n"
)

// Config holds the handler settings taken from the server configuration.
type Config struct {
	// MaxUsers caps online sessions; further connections are turned away.
	MaxUsers int
	// StartRoom is where newly registered players are placed.
	StartRoom string
}

// Dispatcher executes one input line. *command.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, playerID, line string) command.Result
}

// Subscriptions is the broadcast bus surface a session needs.
// *bus.Bus satisfies it.
type Subscriptions interface {
	NewSink() *bus.Sink
	Subscribe(id string, sink *bus.Sink)
	Unsubscribe(id string)
}

// Recorder counts rejected connections. *observability.Metrics satisfies it.
type Recorder interface {
	ConnectionRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) ConnectionRejected(string) {}

// Handler runs the per-connection state machine:
// connecting, choosing a mode, authenticating or registering, active, closing.
// One Handler serves every connection concurrently.
type Handler struct {
	cfg         Config
	accounts    AccountStore
	credentials Credentials
	roller      player.AttributeRoller
	sessions    *session.Registry
	bus         Subscriptions
	dispatcher  Dispatcher
	recorder    Recorder
	logger      *zap.Logger
}

// NewHandler wires a Handler.
//
// Precondition: every argument except recorder must be non-nil;
// cfg.MaxUsers must be positive.
func NewHandler(
	cfg Config,
	accounts AccountStore,
	credentials Credentials,
	roller player.AttributeRoller,
	sessions *session.Registry,
	subs Subscriptions,
	dispatcher Dispatcher,
	recorder Recorder,
	logger *zap.Logger,
) *Handler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Handler{
		cfg:         cfg,
		accounts:    accounts,
		credentials: credentials,
		roller:      roller,
		sessions:    sessions,
		bus:         subs,
		dispatcher:  dispatcher,
		recorder:    recorder,
		logger:      logger,
	}
}

// Serve runs one connection to completion and closes it.
//
// Postcondition: conn is closed; any session opened for it is unsubscribed
// and released. Returns nil for quit or a client hangup, otherwise the
// reason the connection ended.
func (h *Handler) Serve(ctx context.Context, conn LineConn) error {
	defer conn.Close()
	addr := conn.RemoteAddr().String()

	if h.sessions.Count() >= h.cfg.MaxUsers {
		h.recorder.ConnectionRejected("server_full")
		h.logger.Warn("connection refused: server full",
			zap.String("remote_addr", addr),
			zap.Int("max_users", h.cfg.MaxUsers),
		)
		_ = conn.WriteText(msgServerFull)
		return ErrServerFull
	}

	p, err := h.handshake(ctx, conn)
	if err != nil {
		return err
	}
	return h.active(ctx, conn, p)
}

// handshake runs the mode choice and authentication. Blocking reads are
// unblocked by closing conn when ctx ends.
func (h *Handler) handshake(ctx context.Context, conn LineConn) (*player.Player, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	m, err := h.chooseMode(conn)
	if err != nil {
		return nil, err
	}
	if m == modeRegister {
		return h.register(ctx, conn)
	}
	return h.login(ctx, conn)
}

// active registers a session for p and runs the command loop.
func (h *Handler) active(ctx context.Context, conn LineConn, p *player.Player) error {
	start := time.Now()
	sess := session.New(p, h.bus.NewSink(), conn.Transport())

	if prev := h.sessions.Register(sess); prev != nil {
		h.logger.Info("evicting previous session",
			zap.String("username", p.Username),
			zap.String("session_id", prev.ID),
		)
		prev.Send(msgEvicted)
		prev.Close()
	}
	h.bus.Subscribe(sess.ID, sess.Sink())
	defer func() {
		h.bus.Unsubscribe(sess.ID)
		h.sessions.Release(sess)
		sess.Close()
		h.logger.Info("session closed",
			zap.String("username", p.Username),
			zap.String("session_id", sess.ID),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if err := conn.WriteText(fmt.Sprintf("Welcome, %s!\n", p.Username)); err != nil {
		return fmt.Errorf("writing welcome: %w", err)
	}
	if look := h.dispatcher.Dispatch(ctx, p.ID, "look"); look.Text != "" {
		if err := conn.WriteText(look.Text); err != nil {
			return fmt.Errorf("writing room: %w", err)
		}
	}

	return h.loop(ctx, conn, sess)
}

type readResult struct {
	line string
	err  error
}

// loop multiplexes inbound lines and outbound bus messages. Lines are
// dispatched one at a time in arrival order.
func (h *Handler) loop(ctx context.Context, conn LineConn, sess *session.Session) error {
	done := make(chan struct{})
	defer close(done)

	reads := make(chan readResult, 1)
	go func() {
		for {
			line, err := conn.ReadLine()
			select {
			case reads <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	sink := sess.Sink()
	for {
		select {
		case r := <-reads:
			if r.err != nil {
				return h.readFailed(conn, sess, r.err)
			}
			res := h.dispatcher.Dispatch(ctx, sess.PlayerID, r.line)
			if res.Text != "" {
				if err := conn.WriteText(res.Text); err != nil {
					return fmt.Errorf("writing result: %w", err)
				}
			}
			if res.Quit {
				return nil
			}

		case msg := <-sink.C():
			if err := conn.WriteText(msg); err != nil {
				return fmt.Errorf("writing message: %w", err)
			}

		case <-sink.Done():
			for _, msg := range sink.Drain() {
				_ = conn.WriteText(msg)
			}
			return ErrEvicted

		case <-ctx.Done():
			_ = conn.WriteText(msgShutdown)
			return ctx.Err()
		}
	}
}

func (h *Handler) readFailed(conn LineConn, sess *session.Session, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		h.logger.Debug("client hung up", zap.String("username", sess.Username))
		return nil
	case isTimeout(err):
		h.logger.Info("idle session closed", zap.String("username", sess.Username))
		_ = conn.WriteText(msgIdle)
		return ErrIdle
	}
	return fmt.Errorf("reading input: %w", err)
}
