package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server runs the HTTP listener in the Listen/Serve/Stop shape the
// lifecycle expects.
type Server struct {
	addr     string
	srv      *http.Server
	logger   *zap.Logger
	onStop   func()
	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a Server for handler on addr. onStop, if non-nil, runs
// after the HTTP server has shut down; it closes hijacked connections.
func NewServer(addr string, handler http.Handler, onStop func(), logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		srv:    &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		logger: logger,
		onStop: onStop,
	}
}

// Listen binds the TCP listener.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.logger.Info("web server listening", zap.String("addr", l.Addr().String()))
	return nil
}

// Serve blocks serving HTTP until Stop.
//
// Precondition: Listen must have succeeded.
func (s *Server) Serve() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("web server: Serve called before Listen")
	}
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("web server shutdown", zap.Error(err))
	}
	if s.onStop != nil {
		s.onStop()
	}
	s.logger.Info("web server stopped")
}

// Addr returns the bound address, or empty string before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
