// Package sqlite provides a single-file world.Store using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/mudcore/internal/game/world"
	"github.com/cory-johannsen/mudcore/migrations"
)

// Pragmas applied to every connection.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a world.Store over one SQLite database file.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

var _ world.Store = (*Store)(nil)

// Open migrates the database at path to the latest schema and returns a
// Store over it. The file is created if missing.
//
// Precondition: path must be a filesystem path; logger must be non-nil.
// Postcondition: On success the caller owns the Store and must Close it.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if err := Migrate(path, logger); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY between
	// our own transactions.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite %q: %w", path, err)
	}
	return &Store{db: db, now: time.Now, logger: logger}, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// NewMigrator returns a golang-migrate instance over the embedded SQLite
// migrations for the database at path. The caller must Close it.
func NewMigrator(path string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.SQLite, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+filepath.ToSlash(path))
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Migrate applies all pending up migrations to the database at path.
func Migrate(path string, logger *zap.Logger) error {
	m, err := NewMigrator(path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("sqlite schema ready",
		zap.String("path", path),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) stamp() (time.Time, int64) {
	now := s.now().UTC()
	return now, now.UnixNano()
}

// isConstraint matches constraint failures by primary result code and
// message, so it holds whether or not extended codes are enabled.
func isConstraint(err error, kind, detail string) bool {
	var e *moderncsqlite.Error
	if !errors.As(err, &e) || e.Code()&0xff != sqlitelib.SQLITE_CONSTRAINT {
		return false
	}
	msg := e.Error()
	return strings.Contains(msg, kind) && strings.Contains(msg, detail)
}

func isUniqueViolation(err error, column string) bool {
	return isConstraint(err, "UNIQUE constraint failed", column)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, "FOREIGN KEY constraint failed", "")
}
