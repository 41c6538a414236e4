package scene

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"armature/internal/config"
)

// ErrNodeNotFound marks operations that addressed a node handle with no
// persisted representation.
var ErrNodeNotFound = errors.New("scene node not found")

// ErrSceneLocked indicates another process holds the scene lock.
var ErrSceneLocked = errors.New("scene database locked by another process")

// Store manages scene persistence backed by SQLite. One store wraps one
// scene file; the advisory lock beside it enforces the single-process model.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the scene database, acquires the scene
// lock, and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.SceneFile)
}

// OpenPath opens the scene database at an explicit location. Callers outside
// tests should prefer Open so configured directories exist.
func OpenPath(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("scene path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure scene directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scene lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneLocked, dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection and releases the scene lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var closeErr error
	if s.db != nil {
		closeErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("release scene lock: %w", err)
		}
	}
	return closeErr
}

// Path returns the scene database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
