// Package telnet provides the line-oriented Telnet transport for the MUD.
package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/config"
	"github.com/cory-johannsen/mudcore/internal/observability"
)

// SessionHandler processes a connected Telnet session.
// Implementations own the connection for the duration of the call.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Recorder counts accepted connections. *observability.Metrics satisfies it.
type Recorder interface {
	ConnectionAccepted(transport string)
}

// Acceptor listens for Telnet connections on a TCP port and dispatches
// each connection to a SessionHandler on its own goroutine.
type Acceptor struct {
	cfg      config.TelnetConfig
	handler  SessionHandler
	recorder Recorder
	logger   *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// NewAcceptor creates a Telnet acceptor with the given configuration.
//
// Precondition: handler and logger must be non-nil; recorder may be nil.
// Postcondition: Returns an Acceptor ready to be started with Listen and Serve.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, recorder Recorder, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:      cfg,
		handler:  handler,
		recorder: recorder,
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

// Listen binds the TCP listener. A bind failure is returned immediately so
// the caller can treat it as fatal before any other service starts.
//
// Postcondition: On success Addr reports the bound address.
func (a *Acceptor) Listen() error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("telnet acceptor listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Serve accepts connections until Stop is called.
//
// Precondition: Listen must have succeeded.
// Postcondition: Returns nil after Stop, or the accept error that ended the loop.
func (a *Acceptor) Serve() error {
	a.mu.Lock()
	listener := a.listener
	a.mu.Unlock()
	if listener == nil {
		return errors.New("telnet acceptor: Serve called before Listen")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}

		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// ListenAndServe binds and then serves until Stop is called.
func (a *Acceptor) ListenAndServe() error {
	if err := a.Listen(); err != nil {
		return err
	}
	return a.Serve()
}

func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	logger := observability.ConnLogger(a.logger, "telnet", raw.RemoteAddr().String())

	logger.Info("client connected")
	if a.recorder != nil {
		a.recorder.ConnectionAccepted("telnet")
	}

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	if err := conn.Negotiate(); err != nil {
		logger.Error("telnet negotiation failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		logger.Debug("session ended",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		logger.Info("session ended cleanly", zap.Duration("duration", time.Since(start)))
	}
}

// Stop closes the listener, cancels every session context, and waits for
// all session goroutines to finish. It is safe to call more than once.
func (a *Acceptor) Stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
		a.mu.Lock()
		a.running = false
		if a.listener != nil {
			_ = a.listener.Close()
		}
		a.mu.Unlock()
		a.wg.Wait()
		a.logger.Info("telnet acceptor stopped")
	})
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
