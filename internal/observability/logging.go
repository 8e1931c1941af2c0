// Package observability provides logging and metrics utilities.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/mudcore/internal/config"
)

// presets maps a logging.format value to the zap preset it starts from.
var presets = map[string]func() zap.Config{
	"json":    zap.NewProductionConfig,
	"console": zap.NewDevelopmentConfig,
}

// NewLogger builds the root logger for the server named serverName. Every
// entry carries a "server" field.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, serverName string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	preset, ok := presets[cfg.Format]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg := preset()
	zapCfg.Level = level
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Connection lifecycle entries are never sampled.
	zapCfg.Sampling = nil
	if serverName != "" {
		zapCfg.InitialFields = map[string]interface{}{"server": serverName}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ConnLogger returns a child of base for one client connection. The child
// is named after the transport and tags every entry with the transport and
// the peer address.
func ConnLogger(base *zap.Logger, transport, remoteAddr string) *zap.Logger {
	return base.Named(transport).With(
		zap.String("transport", transport),
		zap.String("remote_addr", remoteAddr),
	)
}
