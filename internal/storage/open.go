// Package storage selects and opens the configured world.Store backend.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/config"
	"github.com/cory-johannsen/mudcore/internal/game/world"
	"github.com/cory-johannsen/mudcore/internal/storage/memory"
	"github.com/cory-johannsen/mudcore/internal/storage/postgres"
	"github.com/cory-johannsen/mudcore/internal/storage/sqlite"
)

// Open returns the store named by cfg.Driver. SQL backends are migrated to
// the latest schema before use.
//
// Precondition: cfg must have passed config validation.
// Postcondition: Returns a reachable store the caller must Close, or an error.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (world.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; state is lost on exit")
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
