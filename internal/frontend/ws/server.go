package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/frontend/handlers"
	"github.com/cory-johannsen/mudcore/internal/observability"
)

// SessionServer runs one connection to completion. *handlers.Handler
// satisfies it.
type SessionServer interface {
	Serve(ctx context.Context, conn handlers.LineConn) error
}

// Recorder counts accepted connections. *observability.Metrics satisfies it.
type Recorder interface {
	ConnectionAccepted(transport string)
}

var _ handlers.LineConn = (*Conn)(nil)

// Handler upgrades HTTP requests and hands each connection to a
// SessionServer. Hijacked connections outlive http.Server.Shutdown, so
// Handler tracks them itself; Close ends them all.
type Handler struct {
	upgrader     websocket.Upgrader
	sessions     SessionServer
	recorder     Recorder
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandler creates a websocket Handler.
//
// Precondition: sessions and logger must be non-nil; recorder may be nil.
func NewHandler(sessions SessionServer, readTimeout, writeTimeout time.Duration, recorder Recorder, logger *zap.Logger) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions:     sessions,
		recorder:     recorder,
		logger:       logger,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	start := time.Now()
	logger := observability.ConnLogger(h.logger, "websocket", raw.RemoteAddr().String())
	logger.Info("websocket client connected")
	if h.recorder != nil {
		h.recorder.ConnectionAccepted("websocket")
	}

	conn := NewConn(raw, h.readTimeout, h.writeTimeout)
	defer conn.Close()
	if err := h.sessions.Serve(h.ctx, conn); err != nil {
		logger.Debug("websocket session ended",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	logger.Info("websocket session ended cleanly",
		zap.Duration("duration", time.Since(start)),
	)
}

// Close cancels every live session and waits for them to finish.
// New upgrades are refused afterwards.
func (h *Handler) Close() {
	h.cancel()
	h.wg.Wait()
}
